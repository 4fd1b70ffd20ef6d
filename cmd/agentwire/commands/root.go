package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"agentwire/internal/app"
)

var (
	home       string
	passphrase string
	dirURL     string
	authzURL   string
	logLevel   string

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "agentwire",
		Short: "Secure agent-to-agent messaging CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".agentwire")
			}
			var err error
			wire, err = app.NewWire(app.Config{
				Home:         home,
				Passphrase:   passphrase,
				DirectoryURL: dirURL,
				AuthzURL:     authzURL,
				LogLevel:     logLevel,
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if wire != nil {
				wire.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.agentwire)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting keys at rest")
	root.PersistentFlags().StringVar(&dirURL, "directory", "", "identity directory base URL (default in-process)")
	root.PersistentFlags().StringVar(&authzURL, "authz", "", "authorization service base URL (default in-process allow)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(keygenCmd(), fingerprintCmd(), sessionsCmd(), demoCmd())
	return root.Execute()
}
