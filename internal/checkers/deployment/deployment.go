package deployment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/juststeveking/readycheck/internal/check"
)

const Category = "deployment"

var ciPatterns = map[string][]string{
	"github":   {".github/workflows/*.yml", ".github/workflows/*.yaml"},
	"gitlab":   {".gitlab-ci.yml"},
	"azure":    {"azure-pipelines.yml"},
	"circleci": {".circleci/config.yml"},
	"travis":   {".travis.yml"},
	"jenkins":  {"Jenkinsfile"},
}

var deployKeywords = []string{
	"deploy", "release", "publish", "production", "staging", "kubectl", "helm",
	"docker push", "heroku", "aws", "gcloud", "azure", "netlify", "vercel",
}

var (
	fromLine   = regexp.MustCompile(`(?im)^[ \t]*FROM[ \t]+(?:--\S+[ \t]+)*(\S+)(?:[ \t]+AS[ \t]+(\S+))?`)
	userLine   = regexp.MustCompile(`(?im)^[ \t]*USER[ \t]+(\S+)`)
	healthLine = regexp.MustCompile(`(?im)^[ \t]*HEALTHCHECK[ \t]+`)
	chmodOpen  = regexp.MustCompile(`(?i)chmod[ \t]+(-R[ \t]+)?777`)
)

// Checker inspects the project tree for container and pipeline setup.
type Checker struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{logger: logger}
}

func (c *Checker) Category() string { return Category }

func (c *Checker) Check(ctx context.Context, _ check.Target, opts check.Options) ([]check.Result, error) {
	root := opts.String("project_dir", ".")
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project directory %s not readable", root)
	}

	var results []check.Result
	results = append(results, checkContainer(root)...)
	results = append(results, c.checkCI(root)...)
	results = append(results, checkEnvExample(root))
	return results, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func checkContainer(root string) []check.Result {
	path := filepath.Join(root, "Dockerfile")
	data, err := os.ReadFile(path)
	if err != nil {
		return []check.Result{check.Fail("dockerfile", "no Dockerfile found")}
	}

	results := []check.Result{check.Pass("dockerfile", "Dockerfile found")}
	results = append(results, LintDockerfile(string(data))...)

	if exists(filepath.Join(root, ".dockerignore")) {
		results = append(results, check.Pass("dockerignore", ".dockerignore present").WithWeight(0.5))
	} else {
		results = append(results, check.Warn("dockerignore", ".dockerignore missing").WithWeight(0.5))
	}
	return results
}

// LintDockerfile applies the container best-practice checks to a Dockerfile.
func LintDockerfile(content string) []check.Result {
	var results []check.Result

	froms := fromLine.FindAllStringSubmatch(content, -1)
	if len(froms) == 0 {
		return []check.Result{check.Fail("dockerfile/base-image", "no FROM instruction")}
	}

	var floating []string
	stages := make(map[string]bool)
	for _, m := range froms {
		if m[2] != "" {
			stages[strings.ToLower(m[2])] = true
		}
	}
	for _, m := range froms {
		image := m[1]
		if stages[strings.ToLower(image)] || strings.EqualFold(image, "scratch") || strings.Contains(image, "@sha256:") {
			continue
		}
		name := image[strings.LastIndex(image, "/")+1:]
		if !strings.Contains(name, ":") || strings.HasSuffix(image, ":latest") {
			floating = append(floating, image)
		}
	}
	if len(floating) > 0 {
		results = append(results, check.Fail("dockerfile/base-image", "unpinned base images: %s", strings.Join(floating, ", ")))
	} else {
		results = append(results, check.Pass("dockerfile/base-image", "base images are pinned"))
	}

	users := userLine.FindAllStringSubmatch(content, -1)
	switch {
	case len(users) == 0:
		results = append(results, check.Fail("dockerfile/user", "no USER instruction, container runs as root"))
	case isRoot(users[len(users)-1][1]):
		results = append(results, check.Fail("dockerfile/user", "final USER is root"))
	default:
		results = append(results, check.Pass("dockerfile/user", "runs as %s", users[len(users)-1][1]))
	}

	if healthLine.MatchString(content) {
		results = append(results, check.Pass("dockerfile/healthcheck", "HEALTHCHECK defined"))
	} else {
		results = append(results, check.Warn("dockerfile/healthcheck", "no HEALTHCHECK instruction"))
	}

	if len(froms) > 1 {
		results = append(results, check.Pass("dockerfile/multi-stage", "%d build stages", len(froms)).WithWeight(0.5))
	} else {
		results = append(results, check.Warn("dockerfile/multi-stage", "single-stage build").WithWeight(0.5))
	}

	if chmodOpen.MatchString(content) {
		results = append(results, check.Fail("dockerfile/permissions", "world-writable permissions (chmod 777)"))
	} else {
		results = append(results, check.Pass("dockerfile/permissions", "no world-writable permissions"))
	}
	return results
}

func isRoot(user string) bool {
	name, _, _ := strings.Cut(user, ":")
	return name == "root" || name == "0"
}

func (c *Checker) checkCI(root string) []check.Result {
	var files []string
	var providers []string
	for provider, patterns := range ciPatterns {
		found := false
		for _, pattern := range patterns {
			matches, _ := filepath.Glob(filepath.Join(root, pattern))
			if len(matches) > 0 {
				files = append(files, matches...)
				found = true
			}
		}
		if found {
			providers = append(providers, provider)
		}
	}
	if len(files) == 0 {
		return []check.Result{check.Fail("ci-config", "no CI/CD configuration found")}
	}
	sort.Strings(providers)
	sort.Strings(files)

	results := []check.Result{check.Pass("ci-config", "CI/CD configured (%s)", strings.Join(providers, ", "))}

	var invalid []string
	deploys := false
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		text := string(data)
		if filepath.Base(file) != "Jenkinsfile" {
			var doc yaml.Node
			if err := yaml.Unmarshal(data, &doc); err != nil {
				c.logger.Debug("ci_config_invalid", zap.String("file", file), zap.Error(err))
				invalid = append(invalid, filepath.Base(file))
				continue
			}
			text = strings.Join(scalars(&doc, nil), "\n")
		}
		if hasDeployStep(text) {
			deploys = true
		}
	}

	if len(invalid) > 0 {
		results = append(results, check.Fail("ci-syntax", "invalid YAML in %s", strings.Join(invalid, ", ")))
	} else {
		results = append(results, check.Pass("ci-syntax", "pipeline files parse"))
	}
	if deploys {
		results = append(results, check.Pass("ci-deploy", "pipeline contains a deployment stage"))
	} else {
		results = append(results, check.Warn("ci-deploy", "no deployment stage found in pipeline"))
	}
	return results
}

// scalars collects every key and value of a YAML document.
func scalars(n *yaml.Node, out []string) []string {
	if n.Kind == yaml.ScalarNode {
		return append(out, n.Value)
	}
	for _, child := range n.Content {
		out = scalars(child, out)
	}
	return out
}

func hasDeployStep(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range deployKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func checkEnvExample(root string) check.Result {
	for _, name := range []string{".env.example", ".env.template", ".env.dist", ".env.sample"} {
		if exists(filepath.Join(root, name)) {
			return check.Pass("env-example", "%s documents the environment", name)
		}
	}
	if exists(filepath.Join(root, ".env")) {
		return check.Warn("env-example", ".env exists without an example file")
	}
	return check.Warn("env-example", "no environment example file")
}
