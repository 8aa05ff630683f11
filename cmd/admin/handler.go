package admin

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"linotpadm/internal/client"
	"linotpadm/internal/config"
	"linotpadm/internal/logging"
	"linotpadm/internal/output"
	"linotpadm/internal/prompt"
	"linotpadm/internal/records"
	"linotpadm/internal/request"
	"linotpadm/internal/schema"
	"linotpadm/internal/validate"
	"linotpadm/types"
)

// Exit codes of the linotpadm binary
const (
	ExitOK         = 0
	ExitValidation = 1
	ExitTransport  = 2
	ExitAutomation = 3
)

// Doer sends one request to the backend
type Doer interface {
	Do(ctx context.Context, req *request.Request) (*types.Response, error)
}

// Deps holds the collaborators of Run. Zero values are replaced with the
// real implementations.
type Deps struct {
	Stdout    io.Writer
	Logger    *logrus.Logger
	Prompter  prompt.Prompter
	NewClient func(conn *types.Connection, logger *logrus.Logger) (Doer, error)
}

func (d *Deps) defaults(params schema.ParameterSet) {
	if d.Logger == nil {
		d.Logger = logging.SetupLoggerFromParams(params)
	}
	if d.Prompter == nil {
		d.Prompter = prompt.New()
	}
	if d.NewClient == nil {
		d.NewClient = func(conn *types.Connection, logger *logrus.Logger) (Doer, error) {
			return client.New(conn, logger)
		}
	}
}

// ExitCode maps an error returned by Run to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrMalformedAutomationFile):
		return ExitAutomation
	case schema.IsValidationError(err), errors.Is(err, config.ErrInvalidConnection):
		return ExitValidation
	default:
		return ExitTransport
	}
}

// Run executes one administrative command described by the command line
// flags and the automation file they may name.
func Run(ctx context.Context, flags map[string]string, deps Deps) error {
	var fileValues map[string]string
	if path := flags["automate"]; path != "" {
		values, err := config.LoadAutomationFile(path)
		if err != nil {
			return err
		}
		fileValues = values
	}

	command, params, err := config.Merge(config.DefaultsLayer(), config.FileLayer(fileValues), config.FlagLayer(flags))
	deps.defaults(params)
	if err != nil {
		return err
	}

	logger := deps.Logger
	logger.WithFields(logrus.Fields{
		"command":   command,
		"automated": fileValues != nil,
	}).Debug("Merged parameters")

	conn, err := config.ConnectionFrom(params)
	if err != nil {
		return err
	}

	r := &runner{ctx: ctx, deps: deps, logger: logger, conn: conn}

	inv, err := r.validate(command, params)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(deps.Stdout, inv)
	if err != nil {
		return err
	}

	if inv.Has("module") && !inv.Has("module_password") {
		secret, err := deps.Prompter.Secret("Security module password")
		if err != nil {
			return fmt.Errorf("failed to read security module password: %w", err)
		}
		params := inv.Params()
		params["module_password"] = secret
		if inv, err = validate.Validate(command, params); err != nil {
			return err
		}
	}

	if cfg := inv.Resolver(); cfg != nil {
		logger.WithFields(logrus.Fields(cfg.Summary())).Debug("Resolver configuration")
	}

	req, err := request.Build(inv)
	if err != nil {
		return err
	}

	resp, err := r.do(req)
	if err != nil {
		return err
	}

	var exportFields []string
	if inv.Has("export_fields") {
		if exportFields, err = schema.ParseList(inv.Get("export_fields")); err != nil {
			return err
		}
	}

	recs, err := records.Map(command, resp, records.Options{ExportFields: exportFields})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"command": command,
		"records": len(recs),
	}).Debug("Command completed")

	return formatter.Write(recs)
}

// runner holds the state shared by the steps that may talk to the backend
type runner struct {
	ctx    context.Context
	deps   Deps
	logger *logrus.Logger
	conn   *types.Connection
	client Doer
}

// validate validates params. A setresolver without --rtype falls back to the
// type of the existing resolver of that name.
func (r *runner) validate(command schema.Command, params schema.ParameterSet) (*validate.Invocation, error) {
	inv, err := validate.Validate(command, params)
	if err == nil {
		return inv, nil
	}
	if command != schema.SetResolver || params.Has("rtype") || !params.Has("resolver") ||
		!errors.Is(err, schema.ErrUnknownResolverType) {
		return nil, err
	}

	rt, lookupErr := r.persistedResolverType(params.Get("resolver"))
	if lookupErr != nil {
		return nil, lookupErr
	}
	if rt == "" {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"resolver": params.Get("resolver"),
		"type":     rt,
	}).Debug("Using type of existing resolver")

	return validate.Validate(command, params, validate.WithPersistedResolverType(rt))
}

// persistedResolverType returns the type of the named resolver, or "" when
// the backend does not know it
func (r *runner) persistedResolverType(name string) (schema.ResolverType, error) {
	inv, err := validate.Validate(schema.GetResolvers, schema.ParameterSet{})
	if err != nil {
		return "", err
	}
	req, err := request.Build(inv)
	if err != nil {
		return "", err
	}
	resp, err := r.do(req)
	if err != nil {
		return "", err
	}
	recs, err := records.Map(schema.GetResolvers, resp, records.Options{})
	if err != nil {
		return "", err
	}

	for _, rec := range recs {
		if resolver, _ := rec.Get("resolver"); resolver != name {
			continue
		}
		class, _ := rec.Get("type")
		rt, err := schema.ParseResolverType(class)
		if err != nil {
			return "", nil
		}
		return rt, nil
	}
	return "", nil
}

func (r *runner) do(req *request.Request) (*types.Response, error) {
	if r.client == nil {
		if r.conn.Admin != "" && r.conn.Password == "" {
			secret, err := r.deps.Prompter.Secret("Password for " + r.conn.Admin)
			if err != nil {
				return nil, fmt.Errorf("failed to read admin password: %w", err)
			}
			r.conn.Password = secret
		}

		c, err := r.deps.NewClient(r.conn, r.logger)
		if err != nil {
			return nil, err
		}
		r.client = c
	}

	return r.client.Do(r.ctx, req)
}

func newFormatter(w io.Writer, inv *validate.Invocation) (*output.Formatter, error) {
	if !schema.IsTrue(inv.Get("csv")) {
		return output.New(w, output.Table), nil
	}

	delimiter, err := output.DelimiterFor(inv.Get("csv_format"))
	if err != nil {
		return nil, &schema.ParameterError{Err: schema.ErrInvalidValue, Param: "csv_format", Detail: err.Error()}
	}
	return output.New(w, output.CSV, output.WithDelimiter(delimiter)), nil
}
