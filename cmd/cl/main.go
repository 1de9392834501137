package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"checkline/internal/app"
	"checkline/internal/builder"
	"checkline/internal/config"
	"checkline/internal/db"
	"checkline/internal/domain"
	"checkline/internal/engine"
	"checkline/internal/repo"
	"checkline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Checkline CLI",
	Long: `Checkline manages maintenance procedures: typed ordered checklists,
reusable templates, and scored executions.
- Workspace: the .checkline directory holding the database; checkline.yml configures categories and webhooks.
- Procedure: an ordered list of typed fields (text, number, checkbox, select, multiselect, section, info).
- Template: a snapshot of a procedure's structure, reusable across procedures.
- Execution: one run of a procedure against an optional work order; submit scores it by required-field completion.
- Event log: diary of changes, view with 'cl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CHECKLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(procedureCmd())
	rootCmd.AddCommand(fieldCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- procedure ---

func procedureCmd() *cobra.Command {
	proc := &cobra.Command{
		Use:   "procedure",
		Short: "Manage procedures",
	}
	proc.AddCommand(procedureCreateCmd())
	proc.AddCommand(procedureListCmd())
	proc.AddCommand(procedureShowCmd())
	proc.AddCommand(procedureUpdateCmd())
	proc.AddCommand(procedureDeleteCmd())
	proc.AddCommand(procedureDuplicateCmd())
	return proc
}

func procedureCreateCmd() *cobra.Command {
	var title, desc, category, fieldsFile string
	var tags []string
	var global bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a procedure",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title required")
			}
			var list []domain.ProcedureField
			if fieldsFile != "" {
				data, err := os.ReadFile(fieldsFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &list); err != nil {
					return fmt.Errorf("parse fields file: %w", err)
				}
			}
			opts := engine.ProcedureCreateOptions{
				Title:       title,
				Description: desc,
				Category:    category,
				Tags:        tags,
				Fields:      list,
				ActorID:     viper.GetString("actor-id"),
			}
			if cmd.Flags().Changed("global") {
				opts.IsGlobal = &global
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProcedure(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "procedure title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&global, "global", false, "visible across work orders")
	cmd.Flags().StringVar(&fieldsFile, "fields-file", "", "JSON file with initial fields")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func procedureListCmd() *cobra.Command {
	var category, tag string
	var global bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List procedures",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := repo.ProcedureFilter{Category: category, Tag: tag}
			if cmd.Flags().Changed("global") {
				filter.Global = &global
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProcedures(ctx, filter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Category", "Fields", "Global", "Updated"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Title, p.Category, len(p.Fields), p.IsGlobal, p.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag")
	cmd.Flags().BoolVar(&global, "global", false, "filter by global flag")
	return cmd
}

func procedureShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a procedure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetProcedure(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func procedureUpdateCmd() *cobra.Command {
	var title, desc, category string
	var tags []string
	var global bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update procedure metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.ProcedureUpdateOptions{
				ID:      args[0],
				ActorID: viper.GetString("actor-id"),
			}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &desc
			}
			if cmd.Flags().Changed("category") {
				opts.Category = &category
			}
			if cmd.Flags().Changed("tag") {
				opts.Tags = &tags
			}
			if cmd.Flags().Changed("global") {
				opts.IsGlobal = &global
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProcedure(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "procedure title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags (repeatable)")
	cmd.Flags().BoolVar(&global, "global", false, "visible across work orders")
	return cmd
}

func procedureDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a procedure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteProcedure(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func procedureDuplicateCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Duplicate a procedure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.DuplicateProcedure(ctx, args[0], title, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title for the copy (default: source title + \" (Copy)\")")
	return cmd
}

// --- field ---

func fieldCmd() *cobra.Command {
	field := &cobra.Command{
		Use:   "field",
		Short: "Edit a procedure's field list",
	}
	field.AddCommand(fieldAddCmd())
	field.AddCommand(fieldAddSectionCmd())
	field.AddCommand(fieldAddHeadingCmd())
	field.AddCommand(fieldUpdateCmd())
	field.AddCommand(fieldRemoveCmd())
	field.AddCommand(fieldDuplicateCmd())
	field.AddCommand(fieldMoveCmd())
	field.AddCommand(fieldReorderCmd())
	return field
}

// editFields loads the procedure, applies the edit to its field list,
// and saves the whole list back through the engine.
func editFields(ctx context.Context, procedureID string, edit func(*builder.Document) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		p, err := e.Repo.GetProcedure(ctx, procedureID)
		if err != nil {
			return err
		}
		doc := builder.NewDocument(p, e.Builder(), nil)
		if err := edit(doc); err != nil {
			return err
		}
		updated, err := e.UpdateProcedure(ctx, engine.ProcedureUpdateOptions{
			ID:      procedureID,
			Fields:  &doc.Proc.Fields,
			ActorID: viper.GetString("actor-id"),
		})
		if err != nil {
			return err
		}
		return printJSONOrTable(updated.Fields)
	})
}

func fieldAddCmd() *cobra.Command {
	var procedureID, fieldType, label string
	var required bool
	var choices []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a field",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFields(cmd.Context(), procedureID, func(doc *builder.Document) error {
				var opts *domain.FieldOptions
				if len(choices) > 0 {
					opts = &domain.FieldOptions{Choices: choices}
				}
				doc.AddField(domain.FieldType(fieldType), opts)
				idx := len(doc.Proc.Fields) - 1
				patch := builder.FieldPatch{}
				if cmd.Flags().Changed("label") {
					patch.Label = &label
				}
				if cmd.Flags().Changed("required") {
					patch.IsRequired = &required
				}
				if patch.Label != nil || patch.IsRequired != nil {
					doc.UpdateField(idx, patch)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().StringVar(&fieldType, "type", "text", "field type (text, number, checkbox, select, multiselect)")
	cmd.Flags().StringVar(&label, "label", "", "field label")
	cmd.Flags().BoolVar(&required, "required", false, "required for submit")
	cmd.Flags().StringSliceVar(&choices, "choice", nil, "choice for select/multiselect (repeatable)")
	_ = cmd.MarkFlagRequired("procedure")
	return cmd
}

func fieldAddSectionCmd() *cobra.Command {
	var procedureID, label string
	cmd := &cobra.Command{
		Use:   "add-section",
		Short: "Append a section divider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFields(cmd.Context(), procedureID, func(doc *builder.Document) error {
				doc.AddSection()
				if cmd.Flags().Changed("label") {
					doc.UpdateField(len(doc.Proc.Fields)-1, builder.FieldPatch{Label: &label})
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().StringVar(&label, "label", "", "section label")
	_ = cmd.MarkFlagRequired("procedure")
	return cmd
}

func fieldAddHeadingCmd() *cobra.Command {
	var procedureID, label string
	cmd := &cobra.Command{
		Use:   "add-heading",
		Short: "Append an info heading",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFields(cmd.Context(), procedureID, func(doc *builder.Document) error {
				doc.AddHeading()
				if cmd.Flags().Changed("label") {
					doc.UpdateField(len(doc.Proc.Fields)-1, builder.FieldPatch{Label: &label})
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().StringVar(&label, "label", "", "heading text")
	_ = cmd.MarkFlagRequired("procedure")
	return cmd
}

func fieldUpdateCmd() *cobra.Command {
	var procedureID, label, fieldType, description string
	var required bool
	var index int
	var choices []string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a field by position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFields(cmd.Context(), procedureID, func(doc *builder.Document) error {
				patch := builder.FieldPatch{}
				if cmd.Flags().Changed("label") {
					patch.Label = &label
				}
				if cmd.Flags().Changed("type") {
					t := domain.FieldType(fieldType)
					patch.FieldType = &t
				}
				if cmd.Flags().Changed("required") {
					patch.IsRequired = &required
				}
				opts := domain.FieldOptions{}
				patchOpts := false
				if cmd.Flags().Changed("choice") {
					opts.Choices = choices
					patchOpts = true
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &description
					patchOpts = true
				}
				if patchOpts {
					patch.Options = &opts
				}
				doc.UpdateField(index, patch)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().IntVar(&index, "index", 0, "field position")
	cmd.Flags().StringVar(&label, "label", "", "field label")
	cmd.Flags().StringVar(&fieldType, "type", "", "field type")
	cmd.Flags().BoolVar(&required, "required", false, "required for submit")
	cmd.Flags().StringSliceVar(&choices, "choice", nil, "choice for select/multiselect (repeatable)")
	cmd.Flags().StringVar(&description, "description", "", "help text")
	_ = cmd.MarkFlagRequired("procedure")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

func fieldRemoveCmd() *cobra.Command {
	var procedureID string
	var index int
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a field by position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFields(cmd.Context(), procedureID, func(doc *builder.Document) error {
				doc.RemoveField(index)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().IntVar(&index, "index", 0, "field position")
	_ = cmd.MarkFlagRequired("procedure")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

func fieldDuplicateCmd() *cobra.Command {
	var procedureID string
	var index int
	cmd := &cobra.Command{
		Use:   "duplicate",
		Short: "Duplicate a field in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFields(cmd.Context(), procedureID, func(doc *builder.Document) error {
				doc.DuplicateField(index)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().IntVar(&index, "index", 0, "field position")
	_ = cmd.MarkFlagRequired("procedure")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

func fieldMoveCmd() *cobra.Command {
	var procedureID, dir string
	var index int
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a field up or down one position",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir != string(builder.MoveUp) && dir != string(builder.MoveDown) {
				return fmt.Errorf("--dir must be up or down")
			}
			return editFields(cmd.Context(), procedureID, func(doc *builder.Document) error {
				doc.MoveField(index, builder.Direction(dir))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().IntVar(&index, "index", 0, "field position")
	cmd.Flags().StringVar(&dir, "dir", "", "up or down")
	_ = cmd.MarkFlagRequired("procedure")
	_ = cmd.MarkFlagRequired("index")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func fieldReorderCmd() *cobra.Command {
	var procedureID string
	var from, to int
	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Move a field to an arbitrary position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editFields(cmd.Context(), procedureID, func(doc *builder.Document) error {
				doc.ReorderFields(from, to)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().IntVar(&from, "from", 0, "source position")
	cmd.Flags().IntVar(&to, "to", 0, "target position")
	_ = cmd.MarkFlagRequired("procedure")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// --- template ---

func templateCmd() *cobra.Command {
	tpl := &cobra.Command{
		Use:   "template",
		Short: "Manage templates",
	}
	tpl.AddCommand(templateSaveCmd())
	tpl.AddCommand(templateListCmd())
	tpl.AddCommand(templateShowCmd())
	tpl.AddCommand(templateDeleteCmd())
	tpl.AddCommand(templateApplyCmd())
	return tpl
}

func templateSaveCmd() *cobra.Command {
	var procedureID, name string
	var public bool
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a procedure as a template",
		RunE: func(cmd *cobra.Command, args []string) error {
			if procedureID == "" || name == "" {
				return fmt.Errorf("--procedure and --name required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SaveTemplate(ctx, procedureID, name, public, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().StringVar(&name, "name", "", "template name")
	cmd.Flags().BoolVar(&public, "public", false, "share the template")
	_ = cmd.MarkFlagRequired("procedure")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func templateListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListTemplates(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Category", "Fields", "Public"})
				for _, t := range items {
					tw.AppendRow(table.Row{t.ID, t.Name, t.Category, len(t.Fields), t.IsPublic})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func templateShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				t, err := r.GetTemplate(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func templateDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTemplate(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func templateApplyCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "apply <id>",
		Short: "Instantiate a procedure from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.ApplyTemplate(ctx, args[0], title, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title for the new procedure (default: template name)")
	return cmd
}

// --- run ---

func runCmd() *cobra.Command {
	run := &cobra.Command{
		Use:   "run",
		Short: "Execute procedures",
	}
	run.AddCommand(runStartCmd())
	run.AddCommand(runAnswerCmd())
	run.AddCommand(runSubmitCmd())
	run.AddCommand(runSkipCmd())
	run.AddCommand(runShowCmd())
	run.AddCommand(runListCmd())
	return run
}

func runStartCmd() *cobra.Command {
	var procedureID, workOrderID string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				exec, err := e.StartExecution(ctx, procedureID, optionalString(workOrderID), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(exec)
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "procedure id")
	cmd.Flags().StringVar(&workOrderID, "work-order", "", "work order id")
	_ = cmd.MarkFlagRequired("procedure")
	return cmd
}

func runAnswerCmd() *cobra.Command {
	var fieldID, value string
	cmd := &cobra.Command{
		Use:   "answer <execution-id>",
		Short: "Record an answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fieldID == "" {
				return fmt.Errorf("--field required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				exec, err := e.RecordAnswer(ctx, args[0], fieldID, parseAnswerValue(value), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(exec)
			})
		},
	}
	cmd.Flags().StringVar(&fieldID, "field", "", "field id")
	cmd.Flags().StringVar(&value, "value", "", "answer value (JSON or plain string)")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

func runSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <execution-id>",
		Short: "Submit an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				exec, err := e.SubmitExecution(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(exec)
			})
		},
	}
	return cmd
}

func runSkipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skip <execution-id>",
		Short: "Skip an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				exec, err := e.SkipExecution(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(exec)
			})
		},
	}
	return cmd
}

func runShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Show an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				exec, err := r.GetExecution(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(exec)
			})
		},
	}
	return cmd
}

func runListCmd() *cobra.Command {
	var procedureID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListExecutions(ctx, procedureID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Procedure", "Work Order", "Status", "Score"})
				for _, x := range items {
					wo := ""
					if x.WorkOrderID != nil {
						wo = *x.WorkOrderID
					}
					score := ""
					if x.Score != nil {
						score = fmt.Sprintf("%d%%", *x.Score)
					}
					tw.AppendRow(table.Row{x.ID, x.ProcedureID, wo, x.Status, score})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&procedureID, "procedure", "", "filter by procedure id")
	return cmd
}

// --- category / config / log / apikey / serve ---

func categoryCmd() *cobra.Command {
	cat := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}
	cat.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListCategories(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	return cat
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage workspace config",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default checkline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if c == nil {
				c = config.Default()
			}
			return printJSONOrTable(c)
		},
	})
	return cfg
}

func logCmd() *cobra.Command {
	logCommand := &cobra.Command{
		Use:   "log",
		Short: "Inspect the event log",
	}
	logCommand.AddCommand(logTailCmd())
	return logCommand
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.RecentEvents(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyRevokeCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var actor, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				actor = viper.GetString("actor-id")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				minted, err := e.CreateAPIKey(ctx, actor, name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"key": minted.Plain, "record": minted.Record})
				}
				fmt.Printf("API key (store it now, it is not shown again): %s\n", minted.Plain)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor id")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			e, conn, err := app.Open(cmd.Context(), workspace, viper.GetString("actor-id"))
			if err != nil {
				return err
			}
			defer conn.Close()
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("CHECKLINE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("CHECKLINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{
				Engine:      e,
				BasePath:    basePath,
				Auth:        authCfg,
				BaseContext: cmd.Context(),
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Checkline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, conn, err := app.Open(ctx, viper.GetString("workspace"), viper.GetString("actor-id"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	e, conn, err := app.Open(ctx, viper.GetString("workspace"), viper.GetString("actor-id"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e.Repo)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAnswerValue accepts raw JSON so checkbox and multiselect values
// come through typed; anything that does not parse stays a string.
func parseAnswerValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
