// Package temporal provides the Temporal client, worker plumbing, and error
// mapping for the editorial service's scheduled workflows.
package temporal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

// Default timeout constants.
const (
	// DefaultHealthCheckTimeout is the timeout for Temporal server health checks.
	DefaultHealthCheckTimeout = 5 * time.Second

	// SweepWorkflowID is the fixed workflow ID for the singleton deadline
	// sweep loop. Reusing one ID keeps at most one loop running.
	SweepWorkflowID = "deadline-sweep"
)

var (
	// ErrWorkflowNotFound indicates the workflow execution was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyStarted indicates a workflow with the same ID is already running.
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrConnectionFailed indicates a connection failure to the Temporal server.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNamespaceNotFound indicates the namespace does not exist.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrPermissionDenied indicates insufficient permissions.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResourceExhausted indicates resource limits have been reached.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrDeadlineExceeded indicates the operation deadline was exceeded.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// TemporalError wraps a Temporal error with additional context.
type TemporalError struct {
	Op         string // Operation that failed
	Kind       error  // Category of error (sentinel)
	WorkflowID string // Workflow ID (if applicable)
	RunID      string // Run ID (if applicable)
	Err        error  // Underlying error
}

// Error returns the error message.
func (e *TemporalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.WorkflowID != "" {
		msg += fmt.Sprintf(" [workflowID=%s", e.WorkflowID)
		if e.RunID != "" {
			msg += fmt.Sprintf(", runID=%s", e.RunID)
		}
		msg += "]"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TemporalError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's Kind.
func (e *TemporalError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// wrapTemporalError converts a Temporal SDK error to a TemporalError.
func wrapTemporalError(op string, err error, workflowID, runID string) error {
	if err == nil {
		return nil
	}

	te := &TemporalError{
		Op:         op,
		WorkflowID: workflowID,
		RunID:      runID,
		Err:        err,
	}

	var notFoundErr *serviceerror.NotFound
	var alreadyStartedErr *serviceerror.WorkflowExecutionAlreadyStarted
	var namespaceNotFoundErr *serviceerror.NamespaceNotFound
	var permissionDeniedErr *serviceerror.PermissionDenied
	var invalidArgumentErr *serviceerror.InvalidArgument
	var resourceExhaustedErr *serviceerror.ResourceExhausted
	var deadlineExceededErr *serviceerror.DeadlineExceeded
	var unavailableErr *serviceerror.Unavailable

	switch {
	case errors.As(err, &notFoundErr):
		te.Kind = ErrWorkflowNotFound
	case errors.As(err, &alreadyStartedErr):
		te.Kind = ErrWorkflowAlreadyStarted
	case errors.As(err, &namespaceNotFoundErr):
		te.Kind = ErrNamespaceNotFound
	case errors.As(err, &permissionDeniedErr):
		te.Kind = ErrPermissionDenied
	case errors.As(err, &invalidArgumentErr):
		te.Kind = ErrInvalidArgument
	case errors.As(err, &resourceExhaustedErr):
		te.Kind = ErrResourceExhausted
	case errors.As(err, &deadlineExceededErr):
		te.Kind = ErrDeadlineExceeded
	case errors.As(err, &unavailableErr):
		te.Kind = ErrConnectionFailed
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			te.Kind = ErrDeadlineExceeded
		} else if errors.Is(err, context.Canceled) {
			te.Kind = ErrClientClosed
		} else {
			te.Kind = ErrConnectionFailed
		}
	}

	return te
}

// IsWorkflowAlreadyStarted checks if the error indicates a workflow already started.
func IsWorkflowAlreadyStarted(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyStarted)
}

// IsConnectionFailed checks if the error indicates a connection failure.
func IsConnectionFailed(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// TLSConfig contains TLS configuration for the Temporal client.
type TLSConfig struct {
	// Enabled enables TLS for the connection.
	Enabled bool

	// CertPath is the path to the client certificate file (PEM format).
	CertPath string

	// KeyPath is the path to the client private key file (PEM format).
	KeyPath string

	// CACertPath is the path to the CA certificate file (PEM format).
	CACertPath string

	// ServerName is the expected server name for certificate verification.
	ServerName string

	// InsecureSkipVerify disables certificate verification.
	// WARNING: This should only be used for testing/development.
	InsecureSkipVerify bool
}

// buildTLSConfig creates a *tls.Config from TLSConfig.
func (t *TLSConfig) buildTLSConfig() (*tls.Config, error) {
	if !t.Enabled {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify,
		ServerName:         t.ServerName,
		MinVersion:         tls.VersionTLS12,
	}

	if t.CertPath != "" && t.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if t.CACertPath != "" {
		caCert, err := os.ReadFile(t.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}

// ClientConfig contains configuration for the Temporal client.
type ClientConfig struct {
	// HostPort is the Temporal server address (e.g., "localhost:7233").
	HostPort string

	// Namespace is the Temporal namespace to use.
	Namespace string

	// TaskQueue is the default task queue for starting workflows.
	TaskQueue string

	// TLS contains optional TLS configuration.
	TLS *TLSConfig

	// Logger receives Temporal SDK log output.
	Logger log.Logger

	// HealthCheckTimeout is the timeout for health check operations.
	// Defaults to 5 seconds if not set.
	HealthCheckTimeout time.Duration
}

// NewClient creates a new Temporal client with the given configuration.
func NewClient(cfg ClientConfig) (client.Client, error) {
	options := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    cfg.Logger,
	}

	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsConfig, err := cfg.TLS.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("configure TLS: %w", err)
		}
		options.ConnectionOptions = client.ConnectionOptions{
			TLS: tlsConfig,
		}
	}

	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}

	return c, nil
}

// SweepWorkflowInput parameterizes the deadline sweep loop. Defined here,
// not in the workflows package, so the server and worker entrypoints can
// construct it without importing workflow code.
type SweepWorkflowInput struct {
	// Interval is the pause between sweeps.
	Interval time.Duration

	// IterationsPerRun bounds the loop before continue-as-new trims the
	// workflow history.
	IterationsPerRun int
}

// SweepWorkflowClient starts and monitors the deadline sweep workflow.
type SweepWorkflowClient struct {
	mu                 sync.RWMutex
	client             client.Client
	taskQueue          string
	healthCheckTimeout time.Duration
	closed             bool
}

// NewSweepWorkflowClient creates a new SweepWorkflowClient.
func NewSweepWorkflowClient(c client.Client, taskQueue string) *SweepWorkflowClient {
	return &SweepWorkflowClient{
		client:             c,
		taskQueue:          taskQueue,
		healthCheckTimeout: DefaultHealthCheckTimeout,
	}
}

// Close closes the underlying Temporal client connection.
func (c *SweepWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

func (c *SweepWorkflowClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// EnsureSweepWorkflow starts the deadline sweep loop if it is not already
// running. An already-running loop is not an error.
func (c *SweepWorkflowClient) EnsureSweepWorkflow(ctx context.Context, workflowFunc interface{}, input SweepWorkflowInput) (string, string, error) {
	if c.isClosed() {
		return "", "", &TemporalError{Op: "EnsureSweepWorkflow", Kind: ErrClientClosed}
	}

	options := client.StartWorkflowOptions{
		ID:        SweepWorkflowID,
		TaskQueue: c.taskQueue,
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, workflowFunc, input)
	if err != nil {
		wrapped := wrapTemporalError("EnsureSweepWorkflow", err, SweepWorkflowID, "")
		if IsWorkflowAlreadyStarted(wrapped) {
			return SweepWorkflowID, "", nil
		}
		return "", "", wrapped
	}

	return run.GetID(), run.GetRunID(), nil
}

// Health checks the connection to the Temporal server.
func (c *SweepWorkflowClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{Op: "Health", Kind: ErrClientClosed}
	}

	ctx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	_, err := c.client.CheckHealth(ctx, &client.CheckHealthRequest{})
	if err != nil {
		return wrapTemporalError("Health", err, "", "")
	}
	return nil
}
