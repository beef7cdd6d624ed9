package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	operatorio "github.com/goliatone/go-operatorio"
	"github.com/goliatone/go-operatorio/pkg/config"
	"github.com/goliatone/go-operatorio/pkg/form/html"
	"github.com/goliatone/go-operatorio/pkg/form/tui"
	"github.com/goliatone/go-operatorio/pkg/logging"
	"github.com/goliatone/go-operatorio/pkg/operator"
	"github.com/goliatone/go-operatorio/pkg/plugins"
)

// app carries the state resolved in the root PersistentPreRunE.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"templates":  "html.templates_dir",
	"renderer":   "renderer",
	"output":     "output",
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "operatorio",
		Short:         "Render operator property schemas as forms",
		Long:          `operatorio converts operator property documents into IO schemas and renders them as terminal prompts or HTML forms, standalone or through a plugin registry served over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: ./operatorio.yaml when present)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("renderer", "", "form renderer: tui or html")
	flags.String("output", "", "tui output format: json, form or pretty")
	flags.String("templates", "", "directory with form.html/field.html overriding the built-in html templates")

	root.AddCommand(
		newPanelCmd(a),
		newRenderCmd(a),
		newConvertCmd(a),
		newValidateCmd(a),
		newPluginsCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	loader := config.NewLoader(config.WithFile(a.configPath))
	v := loader.Viper()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// adapter builds an operatorio adapter whose SchemaIO knows both renderers.
// Prompt chatter goes to errOut so stdout only carries the result.
func (a *app) adapter(renderer string, errOut io.Writer, tuiOptions ...tui.Option) (*operatorio.Adapter, error) {
	htmlOptions := []html.Option{html.WithTemplatesDir(a.cfg.HTML.TemplatesDir)}
	if a.cfg.HTML.IDPrefix != "" {
		htmlOptions = append(htmlOptions, html.WithIDPrefix(a.cfg.HTML.IDPrefix))
	}
	tuiOptions = append([]tui.Option{
		tui.WithOutputFormat(tui.OutputFormat(a.cfg.Output)),
		tui.WithPromptDriver(tui.NewSurveyDriver(errOut)),
	}, tuiOptions...)

	schemaIO, err := operatorio.NewDefaultSchemaIO(renderer,
		operatorio.WithHTMLOptions(htmlOptions...),
		operatorio.WithTUIOptions(tuiOptions...),
	)
	if err != nil {
		return nil, err
	}
	return operatorio.NewAdapter(renderer,
		operatorio.WithSchemaIO(schemaIO),
		operatorio.WithLogger(a.logger),
	)
}

// registry returns a plugin registry holding the operatorio plugins.
func (a *app) registry(renderer string, errOut io.Writer) (*plugins.Registry, error) {
	adapter, err := a.adapter(renderer, errOut)
	if err != nil {
		return nil, err
	}
	return operatorio.NewPluginRegistry(adapter)
}

// readProperty loads an operator property from path; "-" reads stdin. YAML
// is selected by extension.
func readProperty(cmd *cobra.Command, path string) (*operator.Property, error) {
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return operator.FromYAML(raw)
	default:
		return operator.FromJSON(raw)
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("an input path is required")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func writeOutput(cmd *cobra.Command, path string, body []byte) error {
	if path == "" {
		out := cmd.OutOrStdout()
		if _, err := out.Write(body); err != nil {
			return err
		}
		if len(body) > 0 && body[len(body)-1] != '\n' {
			_, err := io.WriteString(out, "\n")
			return err
		}
		return nil
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "written to %s\n", path)
	return nil
}
