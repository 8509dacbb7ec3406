// Package version reports build provenance for the chainup binary.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Injected at build time via -ldflags "-X .../internal/version.Version=...".
// Local `go build` keeps the dev defaults; GitCommit then falls back to the
// vcs stamp Go embeds on its own.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the full version record a binary can report about itself.
type Info struct {
	Name      string   `json:"name" yaml:"name"`
	Version   string   `json:"version" yaml:"version"`
	GitCommit string   `json:"commit" yaml:"commit"`
	BuildDate string   `json:"build_date,omitempty" yaml:"build_date,omitempty"`
	GoVersion string   `json:"go" yaml:"go"`
	BuildTags string   `json:"build_tags,omitempty" yaml:"build_tags,omitempty"`
	BuildDeps []string `json:"build_deps,omitempty" yaml:"build_deps,omitempty"`
}

// NewInfo assembles the version record for the named binary.
func NewInfo(name string) Info {
	info := Info{
		Name:      name,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: fmt.Sprintf("go version %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
	if info.GitCommit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.GitCommit = s.Value
				}
			}
		}
	}
	return info
}

// WithBuildDeps adds build tags and the sorted module dependency list from
// the binary's embedded build info.
func (i Info) WithBuildDeps() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}

	var tags []string
	for _, s := range bi.Settings {
		if s.Key == "-tags" && s.Value != "" {
			tags = append(tags, s.Value)
		}
	}
	i.BuildTags = strings.Join(tags, ",")

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		d := fmt.Sprintf("%s@%s", dep.Path, dep.Version)
		if dep.Replace != nil {
			d = fmt.Sprintf("%s@%s => %s@%s", dep.Path, dep.Version, dep.Replace.Path, dep.Replace.Version)
		}
		deps = append(deps, d)
	}
	sort.Strings(deps)
	i.BuildDeps = deps

	return i
}

func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s version %s\n", i.Name, i.Version)
	fmt.Fprintf(&sb, "  commit:     %s\n", i.GitCommit)
	fmt.Fprintf(&sb, "  build date: %s\n", i.BuildDate)
	fmt.Fprintf(&sb, "  go:         %s\n", i.GoVersion)
	return sb.String()
}

// LongString renders the record as YAML, including dependencies when present.
func (i Info) LongString() string {
	data, err := yaml.Marshal(i)
	if err != nil {
		return i.String()
	}
	return string(data)
}

// JSON renders the record as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewCmd builds the `version` subcommand for the named binary.
func NewCmd(name string) *cobra.Command {
	var (
		long       bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := NewInfo(name)
			if long {
				info = info.WithBuildDeps()
			}

			switch {
			case jsonOutput:
				out, err := info.JSON()
				if err != nil {
					return err
				}
				fmt.Println(out)
			case long:
				fmt.Print(info.LongString())
			default:
				fmt.Print(info.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&long, "long", false, "Include build tags and module dependencies")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
