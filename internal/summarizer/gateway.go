package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"dropsum/internal/model"
	"dropsum/internal/video"
)

// Runner executes the resolved summarizer runtime. The default runner
// shells out; tests inject fakes.
type Runner interface {
	Run(ctx context.Context, exe string, args []string, env []string) (stdout, stderr []byte, err error)
}

// ExecRunner runs the summarizer as a real subprocess.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, exe string, args []string, env []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Env = append(os.Environ(), env...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	err := cmd.Run()
	return out.Bytes(), stderr.Bytes(), err
}

// scriptOutput is the structured stdout of the summarizer process.
type scriptOutput struct {
	Summary       string         `json:"summary"`
	GeneratedTags []string       `json:"generated_tags"`
	FrontMatter   map[string]any `json:"front_matter"`
}

// metadataBlob is the serialized bookmark metadata handed to the
// summarizer process.
type metadataBlob struct {
	Title   string   `json:"title,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Created string   `json:"created,omitempty"`
	Domain  string   `json:"domain,omitempty"`
}

// Gateway invokes the external summarizer for one video and
// normalizes its result.
type Gateway struct {
	resolver  Resolver
	runner    Runner
	script    string
	projectID string
	logger    *log.Logger
}

// NewGateway creates a gateway around the summarizer script at
// scriptPath, authenticated against the given cloud project.
func NewGateway(resolver Resolver, runner Runner, scriptPath, projectID string, logger *log.Logger) *Gateway {
	return &Gateway{
		resolver:  resolver,
		runner:    runner,
		script:    scriptPath,
		projectID: projectID,
		logger:    logger,
	}
}

// Summarize runs the summarizer for one item and writes the summary
// artifact under outputDir. Invocation failures come back inside the
// result with a classified message; only local failures (no runtime,
// artifact write) surface as errors.
func (g *Gateway) Summarize(ctx context.Context, item model.BookmarkItem, outputDir string) (*model.DispatchResult, error) {
	exe, err := g.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	meta, err := json.Marshal(metadataBlob{
		Title:   item.Title,
		Tags:    item.Tags,
		Created: item.Created.Format(time.RFC3339),
		Domain:  item.Domain,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	args := []string{g.script, item.Link, "--metadata", string(meta)}
	env := []string{"GOOGLE_CLOUD_PROJECT_ID=" + g.projectID}

	g.logger.Printf("summarizing %s", item.Link)
	stdout, stderr, runErr := g.runner.Run(ctx, exe, args, env)
	if runErr != nil {
		diag := strings.TrimSpace(string(stderr))
		if diag == "" {
			diag = strings.TrimSpace(string(stdout))
		}
		return &model.DispatchResult{Success: false, Err: ClassifyError(diag)}, nil
	}

	out := parseOutput(stdout)

	content := out.Summary
	if out.FrontMatter == nil {
		// Raw-text fallback gets its front matter composed here.
		content = renderFrontMatter(item) + "\n" + content
	}

	filename := video.Filename(item)
	if slug := video.Sanitize(item.Title); slug != "" && filename == video.ExtractID(item.Link) {
		// Keep the ID for collision resistance, prefix the title for
		// humans browsing the output directory.
		filename = slug + "-" + filename
	}
	outputPath := filepath.Join(outputDir, filename+".md")

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write summary artifact: %w", err)
	}

	return &model.DispatchResult{
		Success:       true,
		OutputPath:    outputPath,
		GeneratedTags: out.GeneratedTags,
		Summary:       out.Summary,
	}, nil
}

// parseOutput reads the structured stdout contract, treating any
// parse failure as legacy plain-text summary output with no tags.
func parseOutput(stdout []byte) scriptOutput {
	var out scriptOutput
	if err := json.Unmarshal(stdout, &out); err == nil && out.Summary != "" {
		return out
	}
	return scriptOutput{Summary: string(stdout)}
}

// renderFrontMatter emits the flat YAML front-matter block the
// summarizer itself produces on its structured path.
func renderFrontMatter(item model.BookmarkItem) string {
	var b strings.Builder
	b.WriteString("---\n")
	if item.Title != "" {
		fmt.Fprintf(&b, "title: %s\n", item.Title)
	}
	fmt.Fprintf(&b, "url: %s\n", item.Link)
	if det, ok := video.Classify(item.Link); ok {
		fmt.Fprintf(&b, "platform: %s\n", det.Platform)
		if det.VideoID != "" {
			fmt.Fprintf(&b, "video_id: %s\n", det.VideoID)
		}
	}
	fmt.Fprintf(&b, "generated: %s\n", time.Now().Format(time.RFC3339))
	if !item.Created.IsZero() {
		fmt.Fprintf(&b, "created: %s\n", item.Created.Format(time.RFC3339))
	}
	if item.Domain != "" {
		fmt.Fprintf(&b, "domain: %s\n", item.Domain)
	}
	if len(item.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(item.Tags, ", "))
	}
	b.WriteString("---\n")
	return b.String()
}
