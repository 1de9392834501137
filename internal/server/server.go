package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"checkline/internal/engine"
	"checkline/internal/execution"
	"checkline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	// BaseContext bounds background workers like the webhook
	// dispatcher. Nil means context.Background().
	BaseContext context.Context
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"execution_finalized"`
	Message string         `json:"message" example:"session already finalized"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"field_ids\":[\"f-1\"]}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Checkline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Checkline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerProcedures(group, cfg.Engine)
	registerTemplates(group, cfg.Engine)
	registerExecutions(group, cfg.Engine)
	registerCategories(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerMe(group)
	registerDevAuth(group, cfg.Auth)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg.BaseContext, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var mre execution.MissingRequiredError
	if errors.As(err, &mre) {
		return newAPIError(http.StatusUnprocessableEntity, "missing_required", err.Error(), map[string]any{"field_ids": mre.FieldIDs})
	}
	var ufe execution.UnknownFieldError
	if errors.As(err, &ufe) {
		return newAPIError(http.StatusBadRequest, "unknown_field", err.Error(), map[string]any{"field_id": ufe.FieldID})
	}
	if errors.Is(err, execution.ErrFinalized) || errors.Is(err, repo.ErrFinalized) {
		return newAPIError(http.StatusConflict, "execution_finalized", "execution is already finalized", nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "unknown category"),
		strings.Contains(lowered, "invalid"),
		strings.Contains(lowered, "missing"),
		strings.Contains(lowered, "required"),
		strings.Contains(lowered, "duplicate tag"),
		strings.Contains(lowered, "blank"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	open := map[string]bool{
		"/" + strings.TrimPrefix(path.Join(basePath, "health"), "/"):         true,
		"/" + strings.TrimPrefix(path.Join(basePath, "auth/dev/login"), "/"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Checkline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerProcedures(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-procedure",
		Method:        http.MethodPost,
		Path:          "/procedures",
		Summary:       "Create procedure",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateProcedureRequest `json:"body"`
	}) (*struct {
		Body ProcedureResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if strings.TrimSpace(input.Body.Title) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ProcedureCreateOptions{
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			Category:    stringOrEmpty(input.Body.Category),
			Tags:        input.Body.Tags,
			IsGlobal:    input.Body.IsGlobal,
			Fields:      requestFields(input.Body.Fields),
			ActorID:     actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		p, err := e.CreateProcedure(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProcedureResponse `json:"body"`
		}{Body: procedureResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-procedures",
		Method:      http.MethodGet,
		Path:        "/procedures",
		Summary:     "List procedures",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Category string `query:"category"`
		Tag      string `query:"tag"`
		Global   string `query:"global" enum:"true,false,"`
	}) (*struct {
		Body []ProcedureSummaryResponse `json:"body"`
	}, error) {
		filter := repo.ProcedureFilter{Category: input.Category, Tag: input.Tag}
		if input.Global != "" {
			v, err := strconv.ParseBool(input.Global)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid global filter", nil)
			}
			filter.Global = &v
		}
		items, err := e.Repo.ListProcedures(ctx, filter)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ProcedureSummaryResponse `json:"body"`
		}{Body: mapProcedureSummaries(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-procedure",
		Method:      http.MethodGet,
		Path:        "/procedures/{procedure_id}",
		Summary:     "Get procedure",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ProcedureID string `path:"procedure_id"`
	}) (*struct {
		Body ProcedureResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProcedure(ctx, input.ProcedureID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProcedureResponse `json:"body"`
		}{Body: procedureResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-procedure",
		Method:      http.MethodPatch,
		Path:        "/procedures/{procedure_id}",
		Summary:     "Update procedure",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ProcedureID string                 `path:"procedure_id"`
		Body        UpdateProcedureRequest `json:"body"`
	}) (*struct {
		Body ProcedureResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ProcedureUpdateOptions{
			ID:          input.ProcedureID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Category:    input.Body.Category,
			Tags:        input.Body.Tags,
			IsGlobal:    input.Body.IsGlobal,
			ActorID:     actorID,
		}
		if input.Body.Fields != nil {
			list := requestFields(*input.Body.Fields)
			opts.Fields = &list
		}
		p, err := e.UpdateProcedure(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProcedureResponse `json:"body"`
		}{Body: procedureResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-procedure",
		Method:      http.MethodDelete,
		Path:        "/procedures/{procedure_id}",
		Summary:     "Delete procedure",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ProcedureID string `path:"procedure_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProcedure(ctx, input.ProcedureID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "duplicate-procedure",
		Method:        http.MethodPost,
		Path:          "/procedures/{procedure_id}/duplicate",
		Summary:       "Duplicate procedure",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ProcedureID string                    `path:"procedure_id"`
		Body        DuplicateProcedureRequest `json:"body,omitempty"`
	}) (*struct {
		Body ProcedureResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.DuplicateProcedure(ctx, input.ProcedureID, stringOrEmpty(input.Body.Title), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProcedureResponse `json:"body"`
		}{Body: procedureResponse(p)}, nil
	})
}

func registerTemplates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "save-template",
		Method:        http.MethodPost,
		Path:          "/templates",
		Summary:       "Save procedure as template",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		Body SaveTemplateRequest `json:"body"`
	}) (*struct {
		Body TemplateResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.ProcedureID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "procedure_id is required", nil)
		}
		if strings.TrimSpace(input.Body.Name) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.SaveTemplate(ctx, input.Body.ProcedureID, input.Body.Name, input.Body.IsPublic, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TemplateResponse `json:"body"`
		}{Body: templateResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-templates",
		Method:      http.MethodGet,
		Path:        "/templates",
		Summary:     "List templates",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []TemplateResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListTemplates(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TemplateResponse `json:"body"`
		}{Body: mapTemplates(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-template",
		Method:      http.MethodGet,
		Path:        "/templates/{template_id}",
		Summary:     "Get template",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		TemplateID string `path:"template_id"`
	}) (*struct {
		Body TemplateResponse `json:"body"`
	}, error) {
		t, err := e.Repo.GetTemplate(ctx, input.TemplateID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TemplateResponse `json:"body"`
		}{Body: templateResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-template",
		Method:      http.MethodDelete,
		Path:        "/templates/{template_id}",
		Summary:     "Delete template",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		TemplateID string `path:"template_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTemplate(ctx, input.TemplateID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "apply-template",
		Method:        http.MethodPost,
		Path:          "/templates/{template_id}/apply",
		Summary:       "Instantiate a procedure from a template",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TemplateID string               `path:"template_id"`
		Body       ApplyTemplateRequest `json:"body,omitempty"`
	}) (*struct {
		Body ProcedureResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.ApplyTemplate(ctx, input.TemplateID, stringOrEmpty(input.Body.Title), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProcedureResponse `json:"body"`
		}{Body: procedureResponse(p)}, nil
	})
}

func registerExecutions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-execution",
		Method:        http.MethodPost,
		Path:          "/executions",
		Summary:       "Start execution",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		Body StartExecutionRequest `json:"body"`
	}) (*struct {
		Body ExecutionResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.ProcedureID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "procedure_id is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		exec, err := e.StartExecution(ctx, input.Body.ProcedureID, input.Body.WorkOrderID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExecutionResponse `json:"body"`
		}{Body: executionResponse(exec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-executions",
		Method:      http.MethodGet,
		Path:        "/executions",
		Summary:     "List executions",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ProcedureID string `query:"procedure_id"`
	}) (*struct {
		Body []ExecutionResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListExecutions(ctx, input.ProcedureID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ExecutionResponse `json:"body"`
		}{Body: mapExecutions(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-execution",
		Method:      http.MethodGet,
		Path:        "/executions/{execution_id}",
		Summary:     "Get execution",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ExecutionID string `path:"execution_id"`
	}) (*struct {
		Body ExecutionResponse `json:"body"`
	}, error) {
		exec, err := e.Repo.GetExecution(ctx, input.ExecutionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExecutionResponse `json:"body"`
		}{Body: executionResponse(exec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "answer-execution",
		Method:      http.MethodPost,
		Path:        "/executions/{execution_id}/answers",
		Summary:     "Record an answer",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ExecutionID string        `path:"execution_id"`
		Body        AnswerRequest `json:"body"`
	}) (*struct {
		Body ExecutionResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.FieldID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "field_id is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		exec, err := e.RecordAnswer(ctx, input.ExecutionID, input.Body.FieldID, input.Body.Value, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExecutionResponse `json:"body"`
		}{Body: executionResponse(exec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-execution",
		Method:      http.MethodPost,
		Path:        "/executions/{execution_id}/submit",
		Summary:     "Submit execution",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ExecutionID string `path:"execution_id"`
	}) (*struct {
		Body ExecutionResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		exec, err := e.SubmitExecution(ctx, input.ExecutionID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExecutionResponse `json:"body"`
		}{Body: executionResponse(exec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "skip-execution",
		Method:      http.MethodPost,
		Path:        "/executions/{execution_id}/skip",
		Summary:     "Skip execution",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ExecutionID string `path:"execution_id"`
	}) (*struct {
		Body ExecutionResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		exec, err := e.SkipExecution(ctx, input.ExecutionID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExecutionResponse `json:"body"`
		}{Body: executionResponse(exec)}, nil
	})
}

func registerCategories(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List categories",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []CategoryResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListCategories(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CategoryResponse `json:"body"`
		}{Body: mapCategories(items)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent events",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		if limit > 200 {
			limit = 200
		}
		items, err := e.Repo.RecentEvents(ctx, limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(items)}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		key, err := e.CreateAPIKey(ctx, actor, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		resp := APIKeyResponse{
			ID:        key.Record.ID,
			ActorID:   key.Record.ActorID,
			Name:      key.Record.Name,
			CreatedAt: key.Record.CreatedAt,
			Key:       key.Plain,
		}
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ActorID string `query:"actor_id"`
	}) (*struct {
		Body []APIKeyResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListAPIKeys(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []APIKeyResponse `json:"body"`
		}{Body: mapAPIKeys(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-api-key",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{key_id}",
		Summary:     "Revoke API key",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{
			ActorID: principal.ActorID,
			Name:    principal.Name,
			Source:  principal.Source,
		}}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, actor, input.Body.Name)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}
