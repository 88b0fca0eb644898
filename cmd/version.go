package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// Version and BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/derickschaefer/marquee/cmd.Version=v0.3.0 \
//	  -X github.com/derickschaefer/marquee/cmd.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "v0.2.0"
	BuildTime = ""
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	BuildTime string `json:"build_time,omitempty"`
}

func currentVersion() versionInfo {
	info := versionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		BuildTime: BuildTime,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				info.Commit = s.Value[:12]
			}
		}
	}
	return info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Example: `  marquee version
  marquee version --format json | jq -r .version`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersion()
		w := cmd.OutOrStdout()

		switch globalFlags.Format {
		case "json", "jsonl":
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\n", b)
			return nil
		}

		rows := [][]string{
			{"marquee", info.Version},
			{"go", info.GoVersion},
			{"platform", info.Platform},
		}
		if info.Commit != "" {
			rows = append(rows, []string{"commit", info.Commit})
		}
		if info.BuildTime != "" {
			rows = append(rows, []string{"built", info.BuildTime})
		}
		printKVTable(w, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
