package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server"
	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/services"
	"github.com/google/uuid"
)

var (
	errEmptyPassword    = fmt.Errorf("%w: password must not be empty", common.ErrorValidation)
	errPasswordMismatch = fmt.Errorf("%w: passwords do not match", common.ErrorValidation)
)

// AccountManager is the subset of services.AccountService the console uses.
type AccountManager interface {
	List(ctx context.Context) ([]models.PublicAccount, error)
	Get(ctx context.Context, id string) (*models.PublicAccount, error)
	Create(ctx context.Context, username, password string, roles []string) (uuid.UUID, error)
	Update(ctx context.Context, id, username string, roles []string, newPassword string) error
	SetDeleted(ctx context.Context, id string, deleted bool) error
	Purge(ctx context.Context, id string) error
	Status(ctx context.Context) (*services.Status, error)
}

// Authenticator is implemented by services.CredentialService.
type Authenticator interface {
	Authenticate(ctx context.Context, username, plaintext string) (*models.PublicAccount, error)
}

type App struct {
	accounts AccountManager
	creds    Authenticator
	reader   *bufio.Reader
	out      io.Writer
	closeFn  func() error

	// username of the last successful "login" check, shown in the prompt
	userName string
}

// NewApp opens the database described by cfg and builds a console on stdin
// and stdout.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, cfg.LogLevel, false)

	core, err := server.OpenCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := newApp(core.Accounts, core.Credentials, os.Stdin, os.Stdout)
	a.closeFn = core.DB.Close
	return a, nil
}

func newApp(accounts AccountManager, creds Authenticator, in io.Reader, out io.Writer) *App {
	return &App{
		accounts: accounts,
		creds:    creds,
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

// Run starts the REPL and releases the database when it ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to the useradmin console (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// describe turns a service error into a line for the operator.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrorConflict):
		return "Error: username already exists"
	case errors.Is(err, common.ErrorAccountActive):
		return "Error: only deleted accounts can be purged; delete it first"
	case errors.Is(err, common.ErrorValidation):
		return "Error: " + strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	case errors.Is(err, common.ErrorNotFound):
		return "Error: account not found"
	case errors.Is(err, common.ErrorUnauthorized):
		return "Invalid credentials"
	case errors.Is(err, common.ErrorStorage), errors.Is(err, common.ErrorInternal):
		return "Error: database unavailable: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
