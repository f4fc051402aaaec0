package cli

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AndreyAkinshin/testshard/internal/config"
	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
)

// configTemplate is the starter configuration written by init.
//
//go:embed init_template.yaml
var configTemplate string

// gitignoreMarker starts the block init appends to .gitignore.
const gitignoreMarker = "# testshard"

// initCommand writes a starter config into the working directory. It is
// idempotent: existing files are left alone.
func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create " + config.FileName + " in the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := a.getwd()
			if err != nil {
				return tserrors.Infrastructure(err, "failed to get working directory")
			}
			path := filepath.Join(wd, config.FileName)

			if _, err := os.Stat(path); err == nil {
				a.out.Info("%s already exists (nothing to do)", config.FileName)
				return nil
			}
			if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
				return tserrors.Infrastructure(err, "failed to write "+config.FileName)
			}
			a.updateGitignore(wd)

			a.out.Success("Created %s", config.FileName)
			a.out.Println("")
			a.out.Println("Next steps:")
			a.out.Println("  1. Edit %s to match your suite", config.FileName)
			a.out.Println("  2. Run 'testshard plan' to preview the shards")
			a.out.Println("  3. Run 'testshard run' to run them")
			return nil
		},
	}
}

// updateGitignore adds the log directory to .gitignore.
func (a *app) updateGitignore(root string) {
	gitignorePath := filepath.Join(root, ".gitignore")

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}
	if strings.Contains(existing, gitignoreMarker) {
		return
	}

	var content strings.Builder
	if existing != "" {
		content.WriteString(existing)
		if !strings.HasSuffix(existing, "\n") {
			content.WriteString("\n")
		}
		content.WriteString("\n")
	}
	content.WriteString(gitignoreMarker + "\n")
	content.WriteString(".testshard/\n")

	if err := os.WriteFile(gitignorePath, []byte(content.String()), 0644); err != nil {
		a.out.Warning("could not update .gitignore: %v", err)
	}
}
