package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-operatorio/pkg/form/html"
	"github.com/goliatone/go-operatorio/pkg/form/tui"
	"github.com/goliatone/go-operatorio/pkg/ioschema"
	"github.com/goliatone/go-operatorio/pkg/operator"
	"github.com/goliatone/go-operatorio/pkg/plugins"
	"github.com/goliatone/go-operatorio/pkg/server"
)

func newPanelCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Render the built-in annotation panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapter, err := a.adapter(a.cfg.Renderer, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out, err := adapter.Panel(cmd.Context(), plugins.Props{})
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, out.Body)
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "write the result to a file instead of stdout")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var schemaPath, valuesPath, output string
	var omitEmpty bool
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an operator property document as a form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prop, err := readProperty(cmd, schemaPath)
			if err != nil {
				return err
			}
			values, err := readValues(cmd, valuesPath)
			if err != nil {
				return err
			}
			var tuiOptions []tui.Option
			if omitEmpty {
				tuiOptions = append(tuiOptions, tui.WithSubmitTransformer(dropEmpty))
			}
			adapter, err := a.adapter(a.cfg.Renderer, cmd.ErrOrStderr(), tuiOptions...)
			if err != nil {
				return err
			}
			logger := a.logger
			out, err := adapter.Component(cmd.Context(), plugins.Props{
				Schema: prop,
				Values: values,
				OnChange: func(value map[string]any) {
					logger.Debug("form changed", zap.Any("value", value))
				},
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, out.Body)
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "operator property document (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&valuesPath, "values", "", "JSON file with initial values")
	cmd.Flags().BoolVar(&omitEmpty, "omit-empty", false, "drop empty strings and lists from the tui result")
	cmd.Flags().StringVarP(&output, "out", "o", "", "write the result to a file instead of stdout")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var schemaPath, openapiLoc, ref string
	var jsonSchema bool
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Print the IO schema for an operator property or OpenAPI component",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				prop *operator.Property
				err  error
			)
			switch {
			case openapiLoc != "":
				if ref == "" {
					return errors.New("--ref is required with --openapi")
				}
				prop, err = operator.LoadOpenAPIComponent(cmd.Context(), openapiLoc, ref)
			case schemaPath != "":
				prop, err = readProperty(cmd, schemaPath)
			default:
				return errors.New("one of --schema or --openapi is required")
			}
			if err != nil {
				return err
			}

			schema, err := ioschema.FromOperator(prop)
			if err != nil {
				return err
			}
			a.logger.Debug("converted schema", zap.Int("fields", len(schema.Properties)))

			var doc any = schema
			if jsonSchema {
				doc = schema.JSONSchema()
			}
			body, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", body)
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "operator property document (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&openapiLoc, "openapi", "", "OpenAPI document path or URL")
	cmd.Flags().StringVar(&ref, "ref", "", "component schema name inside the OpenAPI document")
	cmd.Flags().BoolVar(&jsonSchema, "jsonschema", false, "emit the draft-07 JSON Schema projection instead")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var schemaPath, valuesPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate form values against an operator property document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prop, err := readProperty(cmd, schemaPath)
			if err != nil {
				return err
			}
			values, err := readValues(cmd, valuesPath)
			if err != nil {
				return err
			}
			schema, err := ioschema.FromOperator(prop)
			if err != nil {
				return err
			}
			issues, err := ioschema.Validate(schema, values)
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "valid")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", issue.Field, issue.Message)
			}
			a.logger.Debug("validation failed", zap.Int("issues", len(issues)))
			return fmt.Errorf("%d validation issue(s)", len(issues))
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "operator property document (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&valuesPath, "values", "", "JSON file with the values to check")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func newPluginsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the registered plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry(a.cfg.Renderer, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLABEL\tTYPE")
			for _, d := range reg.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Label, d.Type)
			}
			return w.Flush()
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plugin registry over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry(html.Name, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			srv, err := server.New(reg,
				server.WithLogger(a.logger),
				server.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.ShutdownTimeout),
			)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

// dropEmpty removes empty strings, empty lists and empty objects, at any
// depth, from a submitted form value.
func dropEmpty(values map[string]any) (map[string]any, error) {
	for key, value := range values {
		switch v := value.(type) {
		case nil:
			delete(values, key)
		case string:
			if v == "" {
				delete(values, key)
			}
		case []any:
			if len(v) == 0 {
				delete(values, key)
			}
		case map[string]any:
			nested, _ := dropEmpty(v)
			if len(nested) == 0 {
				delete(values, key)
			}
		}
	}
	return values, nil
}

func readValues(cmd *cobra.Command, path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode values %s: %w", path, err)
	}
	return values, nil
}
