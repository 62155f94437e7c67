package stack

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/graph"
	"github.com/oide-iot/mcc-infra/pkg/infra/cfn"
	mccio "github.com/oide-iot/mcc-infra/pkg/io"
	"github.com/oide-iot/mcc-infra/pkg/multierr"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type (
	// App is the set of stacks synthesized from one app config.
	App struct {
		Config config.AppConfig
		// Format is the template format, "json" or "yaml".
		Format string
		stacks []*Stack
	}

	// Synthesized is a stack with its compiled template.
	Synthesized struct {
		Stack    *Stack
		Template *cfn.Template
	}

	// AssetManifest lists what deploy must publish for a stack.
	AssetManifest struct {
		StackName string   `json:"stackName"`
		Assets    []*Asset `json:"assets"`
	}
)

func NewApp(cfg config.AppConfig) *App {
	format := cfg.Format
	if format != "yaml" {
		format = "json"
	}
	return &App{Config: cfg, Format: format}
}

// NewStack registers an empty stack for the config section configName, deployed as
// `<prefix>-<name>`.
func (app *App) NewStack(configName, name, description string) *Stack {
	prefix := app.Config.ProjectPrefix()
	s := &Stack{
		ConfigName:    configName,
		Name:          stackName(prefix, name),
		Description:   description,
		ProjectPrefix: prefix,
		Config:        app.Config,
		Graph:         core.NewResourceGraph(),
	}
	s.log = zap.S().Named(s.Name)
	app.stacks = append(app.stacks, s)
	return s
}

// Stacks returns the stacks in creation order.
func (app *App) Stacks() []*Stack {
	return app.stacks
}

// Stack returns the stack for configName, or nil.
func (app *App) Stack(configName string) *Stack {
	for _, s := range app.stacks {
		if s.ConfigName == configName {
			return s
		}
	}
	return nil
}

// StackOrder returns the stacks so that each comes after the stacks whose parameters it reads
// and those it explicitly depends on.
func (app *App) StackOrder() ([]*Stack, error) {
	g := graph.NewDirected(func(s *Stack) string { return s.ConfigName })
	producers := make(map[string]*Stack)
	for _, s := range app.stacks {
		g.AddVertex(s)
		for _, key := range s.produces {
			if other, ok := producers[key]; ok {
				return nil, errors.Errorf("parameter %s is put by both %s and %s", key, other.Name, s.Name)
			}
			producers[key] = s
		}
	}
	errs := multierr.Error{}
	for _, s := range app.stacks {
		for _, key := range s.consumes {
			producer, ok := producers[key]
			if !ok {
				// Parameters put outside this app (eg by hand) are fine; deploy fails if it's missing.
				s.log.Debugf("parameter %s is not put by any stack in the app", key)
				continue
			}
			if producer != s {
				errs.Append(g.AddEdge(s.ConfigName, producer.ConfigName))
			}
		}
		for _, name := range s.dependsOn {
			if _, ok := g.GetVertex(name); !ok {
				errs.Append(errors.Errorf("%s depends on %s, which is not in the app", s.Name, name))
				continue
			}
			errs.Append(g.AddEdge(s.ConfigName, name))
		}
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}
	keys, err := g.DependencyOrder()
	if err != nil {
		return nil, err
	}
	ordered := make([]*Stack, 0, len(keys))
	for _, k := range keys {
		s, _ := g.GetVertex(k)
		ordered = append(ordered, s)
	}
	return ordered, nil
}

// Compile renders every stack's template in deployment order. Failures in different stacks are
// reported together.
func (app *App) Compile() ([]Synthesized, error) {
	ordered, err := app.StackOrder()
	if err != nil {
		return nil, err
	}
	var out []Synthesized
	errs := multierr.Error{}
	for _, s := range ordered {
		tmpl, err := cfn.CreateTemplatesCompiler(s.Graph).Compile(s.Description)
		if err != nil {
			errs.Append(core.NewSynthError(s.Name, err))
			continue
		}
		out = append(out, Synthesized{Stack: s, Template: tmpl})
	}
	return out, errs.ErrOrNil()
}

// Synth compiles the app into files: one template per stack, an asset manifest for stacks with
// assets, and each packaged asset under `assets/`.
func (app *App) Synth() ([]mccio.File, error) {
	compiled, err := app.Compile()
	if err != nil {
		return nil, err
	}
	var files []mccio.File
	for _, c := range compiled {
		content, err := c.Template.Marshal(app.Format)
		if err != nil {
			return nil, core.NewSynthError(c.Stack.Name, err)
		}
		files = append(files, &mccio.RawFile{
			FPath:   TemplateFileName(c.Stack.Name, app.Format),
			Content: content,
		})
		if len(c.Stack.Assets) == 0 {
			continue
		}
		manifest, err := json.MarshalIndent(AssetManifest{StackName: c.Stack.Name, Assets: c.Stack.Assets}, "", "  ")
		if err != nil {
			return nil, core.NewSynthError(c.Stack.Name, err)
		}
		files = append(files, &mccio.RawFile{FPath: c.Stack.Name + ".assets.json", Content: manifest})
		for _, a := range c.Stack.Assets {
			files = append(files, &assetFile{asset: a, fpath: path.Join("assets", a.Hash+a.Extension())})
		}
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Path() < files[j].Path() })
	return files, nil
}

func TemplateFileName(stackName, format string) string {
	return fmt.Sprintf("%s.template.%s", stackName, cfn.Extension(format))
}
