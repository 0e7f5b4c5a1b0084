package main

import (
	"fmt"
	"os"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

var updateYes bool

func init() {
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "update without asking")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update stepwise to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		if version == "dev" {
			fmt.Println("This is a development build of stepwise. Update is not supported.")
			return nil
		}

		latest, found, err := selfupdate.DetectLatest("blackcoderx/stepwise")
		if err != nil {
			return fmt.Errorf("failed to detect the latest release: %w", err)
		}

		v, err := semver.ParseTolerant(version)
		if err != nil {
			return fmt.Errorf("failed to parse current version '%s': %w", version, err)
		}

		if !found || latest.Version.LTE(v) {
			fmt.Println("Current version", v, "is the latest")
			return nil
		}

		if !updateYes {
			fmt.Print("Do you want to update to ", latest.Version, "? (y/n): ")
			var input string
			_, _ = fmt.Scanln(&input)
			if input != "y" {
				return nil
			}
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("could not locate executable path: %w", err)
		}
		if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
			return fmt.Errorf("failed to update binary: %w", err)
		}
		fmt.Println("Successfully updated to version", latest.Version)
		if latest.ReleaseNotes != "" {
			printReport("## Release notes\n\n"+latest.ReleaseNotes, 80)
		}
		return nil
	},
}
