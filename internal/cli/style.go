package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blockdeck/pkg/errors"
	"github.com/matzehuels/blockdeck/pkg/style"
)

// loadStyle reads the style config for a render. An explicit path must
// exist; the default path is optional and a missing file means defaults.
func loadStyle(path string) (style.Config, error) {
	if path != "" {
		if err := errors.ValidatePath(path); err != nil {
			return nil, err
		}
		return style.Load(path)
	}
	def, err := defaultStylePath()
	if err != nil {
		return nil, nil
	}
	cfg, err := style.Load(def)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return cfg, err
}

// styleCommand creates the style command.
func (c *CLI) styleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "style",
		Short: "Manage the style file",
		Long: `Manage the style file used by render and export. It lives at
~/.config/blockdeck/style.toml; JSON and YAML files are accepted through --style.
Unknown keys are ignored and numbers are clamped to their allowed range.`,
	}

	cmd.AddCommand(c.styleShowCommand())
	cmd.AddCommand(c.styleInitCommand())
	cmd.AddCommand(c.styleResetCommand())
	cmd.AddCommand(c.stylePathCommand())

	return cmd
}

func (c *CLI) styleShowCommand() *cobra.Command {
	var (
		path   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective style",
		Long:  `Print the style after defaults, clamping and color resolution are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateFormat(format, string(style.FormatTOML), string(style.FormatJSON), string(style.FormatYAML)); err != nil {
				return err
			}
			cfg, err := loadStyle(path)
			if err != nil {
				return err
			}
			sheet := style.Resolve(cfg, style.DefaultCanvas())
			return style.Encode(os.Stdout, sheet.Config(), style.Format(format))
		},
	}

	cmd.Flags().StringVar(&path, "style", "", "style file (default ~/.config/blockdeck/style.toml)")
	cmd.Flags().StringVar(&format, "format", string(style.FormatTOML), "output format: toml, json or yaml")

	return cmd
}

func (c *CLI) styleInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default style file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := defaultStylePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				printInfo("Style file already exists")
				printFile(path)
				printNextStep("Overwrite it", appName+" style init --force")
				return nil
			}
			if err := style.Save(path, style.Defaults()); err != nil {
				return fmt.Errorf("write style: %w", err)
			}
			printSuccess("Wrote default style")
			printFile(path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func (c *CLI) styleResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the style file so defaults apply",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := defaultStylePath()
			if err != nil {
				return err
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			printSuccess("Style reset to defaults")
			return nil
		},
	}
}

func (c *CLI) stylePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the style file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := defaultStylePath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}
