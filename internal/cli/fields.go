package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/store"
)

// FieldsOptions holds flags shared by the fields subcommands.
type FieldsOptions struct {
	*RootOptions
	Company    string
	Type       string
	Visibility string
}

// NewFieldsCommand creates the fields command group, which manages the
// custom-field metadata store.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FieldsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Manage custom-field metadata",
		Long: `Manage the custom fields a company has declared. The metadata store
(metadata.path) decides which custom fields a caller may filter on and
which are stored as arrays.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Company, "company", "", "company id (hex ObjectID)")
	_ = cmd.MarkPersistentFlagRequired("company")

	add := &cobra.Command{
		Use:           "add <name>",
		Short:         "Declare or update a custom field",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFieldsAdd(opts, args[0], cmd)
		},
	}
	add.Flags().StringVar(&opts.Type, "type", string(report.TypeText), "field type")
	add.Flags().StringVar(&opts.Visibility, "visibility", string(report.VisibilityPublic), "public|restricted|private")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List a company's custom fields",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFieldsList(opts, cmd)
		},
	}

	remove := &cobra.Command{
		Use:           "remove <name>",
		Short:         "Delete a custom field",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFieldsRemove(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func openMetadata(opts *FieldsOptions) (*store.Store, primitive.ObjectID, error) {
	company, err := primitive.ObjectIDFromHex(opts.Company)
	if err != nil {
		return nil, primitive.NilObjectID, fmt.Errorf("--company: %w", err)
	}
	if opts.Config.Metadata.Path == "" {
		return nil, primitive.NilObjectID, fmt.Errorf("metadata.path is not configured")
	}
	st, err := store.Open(opts.Config.Metadata.Path)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	return st, company, nil
}

func validVisibility(v report.Visibility) bool {
	switch v {
	case report.VisibilityPublic, report.VisibilityRestricted, report.VisibilityPrivate:
		return true
	}
	return false
}

func runFieldsAdd(opts *FieldsOptions, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	field := store.CustomField{
		Name:       name,
		Type:       report.FieldType(opts.Type),
		Visibility: report.Visibility(opts.Visibility),
	}
	if !validVisibility(field.Visibility) {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Errorf("invalid visibility %q", opts.Visibility))
	}

	st, company, err := openMetadata(opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConnect, err)
	}
	defer st.Close()

	field.CompanyID = company
	if err := st.UpsertCustomField(cmd.Context(), field); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(field)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s (%s, %s)\n", field.Name, field.Type, field.Visibility)
	return nil
}

func runFieldsList(opts *FieldsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, company, err := openMetadata(opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConnect, err)
	}
	defer st.Close()

	fields, err := st.ListCustomFields(cmd.Context(), company)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err)
	}

	if formatter.Format == "json" {
		if fields == nil {
			fields = []store.CustomField{}
		}
		return formatter.Success(fields)
	}
	if len(fields) == 0 {
		fmt.Fprintln(formatter.Writer, "No custom fields.")
		return nil
	}
	for _, f := range fields {
		fmt.Fprintf(formatter.Writer, "%s\t%s\t%s\n", f.Name, f.Type, f.Visibility)
	}
	return nil
}

func runFieldsRemove(opts *FieldsOptions, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, company, err := openMetadata(opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConnect, err)
	}
	defer st.Close()

	if err := st.DeleteCustomField(cmd.Context(), company, name); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"removed": name})
	}
	fmt.Fprintf(formatter.Writer, "✓ removed %s\n", name)
	return nil
}
