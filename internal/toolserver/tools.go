package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/plugins"
	"github.com/kitforge/kit/internal/scaffold"
	"github.com/kitforge/kit/internal/upstream"
)

// ToolName returns the public name of a tool, e.g. "kit_status".
func ToolName(short string) string {
	return branding.CLIName() + "_" + short
}

const projectPathSchema = `"projectPath": {"type": "string", "minLength": 1, "description": "Absolute path to the project root"}`

func objectSchema(required []string, props ...string) json.RawMessage {
	req, _ := json.Marshal(required)
	body := ""
	for i, p := range props {
		if i > 0 {
			body += ","
		}
		body += p
	}
	return json.RawMessage(fmt.Sprintf(`{"type":"object","required":%s,"properties":{%s}}`, req, body))
}

func definitions() []*Tool {
	return []*Tool{
		{
			Name:        ToolName("status"),
			Description: "Project introspection: detect variant, git status, registry config, and plugin install status",
			InputSchema: objectSchema([]string{"projectPath"}, projectPathSchema),
			run:         runStatus,
		},
		{
			Name:        ToolName("list_variants"),
			Description: "List available kit variants with metadata for the project creation wizard",
			InputSchema: objectSchema([]string{}),
			run:         runListVariants,
		},
		{
			Name:        ToolName("create_project"),
			Description: "Create a new project: clones the selected kit variant, installs dependencies, and writes the project marker file.",
			InputSchema: objectSchema([]string{"variant", "name", "directory"},
				`"variant": {"type": "string", "enum": ["next-supabase", "next-drizzle", "next-prisma", "react-router-supabase"]}`,
				`"name": {"type": "string", "minLength": 1}`,
				`"directory": {"type": "string", "description": "Absolute path to the parent directory"}`,
				`"github_token": {"type": "string", "description": "GitHub token for HTTPS cloning; stripped from the remote after clone"}`,
			),
			run: runCreateProject,
		},
		{
			Name:        ToolName("list_plugins"),
			Description: "List the plugins available for the detected project variant with install status and metadata",
			InputSchema: objectSchema([]string{"projectPath"}, projectPathSchema),
			run:         runListPlugins,
		},
		{
			Name:        ToolName("add_plugin"),
			Description: "Install a plugin: writes its files, runs its codemod, adds env vars, and returns a structured result",
			InputSchema: objectSchema([]string{"projectPath", "pluginId"},
				projectPathSchema,
				`"pluginId": {"type": "string", "minLength": 1}`,
				`"githubUsername": {"type": "string", "description": "Registry identity; the cached one is used when omitted"}`,
				`"skipGitCheck": {"type": "boolean", "description": "Skip the clean working tree check, e.g. when installing several plugins in sequence"}`,
			),
			run: runAddPlugin,
		},
		{
			Name:        ToolName("init_registry"),
			Description: "Cache the GitHub username used for plugin registry authentication",
			InputSchema: objectSchema([]string{"projectPath", "githubUsername"},
				projectPathSchema,
				`"githubUsername": {"type": "string", "minLength": 1}`,
			),
			run: runInitRegistry,
		},
		{
			Name:        ToolName("check_update"),
			Description: "Analyze a plugin update with a three-way comparison (base/local/remote). Returns per-file status and the content needed to resolve it.",
			InputSchema: objectSchema([]string{"projectPath", "pluginId"},
				projectPathSchema,
				`"pluginId": {"type": "string", "minLength": 1}`,
				`"githubUsername": {"type": "string"}`,
			),
			run: runCheckUpdate,
		},
		{
			Name:        ToolName("apply_update"),
			Description: "Apply resolved plugin update files. Writes content to disk and updates base versions for future comparisons.",
			InputSchema: objectSchema([]string{"projectPath", "pluginId", "files"},
				projectPathSchema,
				`"pluginId": {"type": "string", "minLength": 1}`,
				`"files": {"type": "array", "items": {"type": "object", "required": ["path", "action"], "properties": {
					"path": {"type": "string", "minLength": 1},
					"content": {"type": "string"},
					"action": {"type": "string", "enum": ["write", "skip", "delete"]}}}}`,
				`"installDependencies": {"type": "boolean", "description": "Install the plugin's dependencies (default true)"}`,
				`"githubUsername": {"type": "string"}`,
			),
			run: runApplyUpdate,
		},
		{
			Name: ToolName("project_pull"),
			Description: "Pull upstream changes into the project: configures the upstream remote, fetches and merges. " +
				"Returns base/local/remote content for each conflict; resolve them with " + ToolName("project_resolve_conflicts") + ".",
			InputSchema: objectSchema([]string{"projectPath"}, projectPathSchema),
			run:         runProjectPull,
		},
		{
			Name:        ToolName("project_resolve_conflicts"),
			Description: "Write resolved contents for conflicted files, stage them, and complete the merge commit.",
			InputSchema: objectSchema([]string{"projectPath", "files"},
				projectPathSchema,
				`"files": {"type": "array", "items": {"type": "object", "required": ["path", "content"], "properties": {
					"path": {"type": "string", "minLength": 1},
					"content": {"type": "string"}}}}`,
				`"commitMessage": {"type": "string"}`,
			),
			run: runResolveConflicts,
		},
	}
}

type projectArgs struct {
	ProjectPath string `json:"projectPath"`
}

func (s *Server) plugins(projectPath string) (*plugins.Service, error) {
	if s.env.Plugins == nil {
		return nil, fmt.Errorf("plugin operations are not available")
	}
	return s.env.Plugins(projectPath)
}

func runStatus(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args projectArgs
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	svc, err := s.plugins(args.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := svc.Status(ctx)
	return res, nil, err
}

func runListVariants(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	return struct {
		Variants []scaffold.VariantInfo `json:"variants"`
	}{scaffold.Variants()}, nil, nil
}

func runCreateProject(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args struct {
		Variant     manifest.Variant `json:"variant"`
		Name        string           `json:"name"`
		Directory   string           `json:"directory"`
		GitHubToken string           `json:"github_token"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	if !filepath.IsAbs(args.Directory) {
		return nil, nil, fmt.Errorf("%q must be an absolute path, got %q", "directory", args.Directory)
	}
	creator := s.env.Creator
	if creator == nil {
		creator = &scaffold.Creator{Logger: s.log}
	}
	res, err := creator.Create(ctx, scaffold.CreateOptions{
		Variant:   args.Variant,
		Name:      args.Name,
		Directory: args.Directory,
		Token:     args.GitHubToken,
	})
	return res, nil, err
}

func runListPlugins(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args projectArgs
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	svc, err := s.plugins(args.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := svc.List(ctx)
	return res, nil, err
}

func runAddPlugin(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args struct {
		projectArgs
		PluginID       string `json:"pluginId"`
		GitHubUsername string `json:"githubUsername"`
		SkipGitCheck   bool   `json:"skipGitCheck"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	svc, err := s.plugins(args.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := svc.Install(ctx, plugins.InstallOptions{
		PluginID:     args.PluginID,
		Identity:     args.GitHubUsername,
		SkipGitCheck: args.SkipGitCheck,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, res.Failure, nil
}

func runInitRegistry(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args struct {
		projectArgs
		GitHubUsername string `json:"githubUsername"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	svc, err := s.plugins(args.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := svc.InitRegistry(ctx, args.GitHubUsername)
	return res, nil, err
}

func runCheckUpdate(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args struct {
		projectArgs
		PluginID       string `json:"pluginId"`
		GitHubUsername string `json:"githubUsername"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	svc, err := s.plugins(args.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := svc.CheckUpdate(ctx, plugins.CheckOptions{PluginID: args.PluginID, Identity: args.GitHubUsername})
	if err != nil {
		return nil, nil, err
	}
	if res.Failure != nil {
		return nil, res.Failure, nil
	}
	return struct {
		*plugins.CheckResult
		Note string `json:"note"`
	}{res, "For conflict files, produce a merged version and pass it to " + ToolName("apply_update") + "."}, nil, nil
}

func runApplyUpdate(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args struct {
		projectArgs
		PluginID            string              `json:"pluginId"`
		Files               []plugins.ApplyFile `json:"files"`
		InstallDependencies *bool               `json:"installDependencies"`
		GitHubUsername      string              `json:"githubUsername"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	svc, err := s.plugins(args.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := svc.ApplyUpdate(ctx, plugins.ApplyOptions{
		PluginID:         args.PluginID,
		Identity:         args.GitHubUsername,
		Files:            args.Files,
		SkipDependencies: args.InstallDependencies != nil && !*args.InstallDependencies,
	})
	if err != nil {
		return nil, nil, err
	}
	if res.Failure != nil {
		return nil, res.Failure, nil
	}
	return struct {
		*plugins.ApplyResult
		Note string `json:"note"`
	}{res, "Base versions updated. Run " + ToolName("check_update") + " again to verify all files show as unchanged."}, nil, nil
}

func (s *Server) syncer(projectPath string) (*upstream.Syncer, error) {
	if s.env.Upstream == nil {
		return nil, fmt.Errorf("upstream operations are not available")
	}
	return s.env.Upstream(projectPath)
}

func runProjectPull(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args projectArgs
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	sy, err := s.syncer(args.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := sy.Pull(ctx)
	if err != nil {
		return nil, nil, err
	}
	// Conflicts are a normal result for the caller to act on.
	return res, res.Failure, nil
}

func runResolveConflicts(ctx context.Context, s *Server, raw json.RawMessage) (any, *outcome.Failure, error) {
	var args struct {
		projectArgs
		Files         []upstream.ResolvedFile `json:"files"`
		CommitMessage string                  `json:"commitMessage"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}
	sy, err := s.syncer(args.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := sy.ResolveConflicts(ctx, args.Files, args.CommitMessage)
	// A partial resolution is reported as a normal result listing what remains.
	return res, nil, err
}
