package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/dmitrijs2005/clinicsync/internal/client/clinic"
	"github.com/dmitrijs2005/clinicsync/internal/client/config"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/spf13/cobra"
)

type Option func(*env)

// WithInput replaces stdin. Secrets are then read as plain lines.
func WithInput(r io.Reader) Option {
	return func(e *env) { e.in = r }
}

func WithOutput(w io.Writer) Option {
	return func(e *env) { e.out = w }
}

// WithAppOptions is passed through to clinic.New.
func WithAppOptions(opts ...clinic.Option) Option {
	return func(e *env) { e.appOpts = append(e.appOpts, opts...) }
}

// env is shared by every command of one invocation.
type env struct {
	in      io.Reader
	out     io.Writer
	prompt  *Prompter
	appOpts []clinic.Option

	cfg      *config.Config
	logger   logging.Logger
	logClose io.Closer
	app      *clinic.App
}

func (e *env) open(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	e.cfg = cfg

	l, closer := logging.NewSlog(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	e.logger = l
	e.logClose = closer

	app, err := clinic.New(cmd.Context(), cfg, l, e.appOpts...)
	if err != nil {
		return err
	}
	e.app = app
	return nil
}

func (e *env) close(ctx context.Context) error {
	var errs []error
	if e.app != nil {
		errs = append(errs, e.app.Close(context.WithoutCancel(ctx)))
		e.app = nil
	}
	if e.logClose != nil {
		errs = append(errs, e.logClose.Close())
		e.logClose = nil
	}
	return errors.Join(errs...)
}

// NewRootCommand builds the command tree. The returned cleanup releases the
// application opened by the executed command.
func NewRootCommand(opts ...Option) (*cobra.Command, func(context.Context) error) {
	e := &env{in: os.Stdin, out: os.Stdout}
	for _, fn := range opts {
		fn(e)
	}
	e.prompt = NewPrompter(e.in, e.out)

	root := &cobra.Command{
		Use:   "clinic",
		Short: "Offline-first clinic records client",
		Long: `clinic records patients, blood pressures, prescriptions, appointments
and medical histories on this device and keeps them in sync with the
clinic server whenever the account is approved for syncing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(e.out)
	root.SetErr(e.out)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newLoginCommand(e),
		newRegisterCommand(e),
		newLogoutCommand(e),
		newResetPinCommand(e),
		newForgotPinCommand(e),
		newUnlockCommand(e),
		newRefreshCommand(e),
		newSyncCommand(e),
		newDaemonCommand(e),
		newStatusCommand(e),
		newPatientCommand(e),
		newBloodPressureCommand(e),
		newPrescriptionCommand(e),
		newAppointmentCommand(e),
		newHistoryCommand(e),
	)
	return root, e.close
}

// Execute runs the command named by args and prints a readable message on
// failure. The error is returned for the exit code.
func Execute(ctx context.Context, args []string, opts ...Option) error {
	root, cleanup := NewRootCommand(opts...)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cErr := cleanup(ctx); cErr != nil && err == nil {
		err = cErr
	}
	if err != nil {
		fail(root.ErrOrStderr(), "%s", describeError(err))
	}
	return err
}
