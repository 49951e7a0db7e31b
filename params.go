// Package ftpkit presents a remote FTP server as an asynchronous virtual
// file system and a bulk transfer engine: a bounded pool of pre-authenticated
// control connections, a parallel directory walker, a path-trie backed
// makedirs, and an upload/download orchestrator that dispatches by source
// and destination shape.
package ftpkit

import (
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
)

// Version is the module's release identifier, surfaced by the CLI's
// -v/--version flag.
const Version = "0.1.0"

// DefaultTimeout is applied to TCP connect and to pool initialization when
// ConnectionParameters.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// DefaultMaxConnections is the pool size used when ConnectionParameters
// does not set MaxConnections.
const DefaultMaxConnections = 10

// DefaultMaxWorkers is the concurrency limit used when ConnectionParameters
// does not set MaxWorkers. It is recommended to keep this at least 3x
// MaxConnections, though ftpkit does not enforce the ratio.
const DefaultMaxWorkers = 30

var validate = validator.New()

// Credentials holds an FTP username and password. Password is redacted by
// String and MarshalJSON so it never leaks into logs.
type Credentials struct {
	Username string `mapstructure:"username" json:"username" yaml:"username" validate:"required"`
	Password string `mapstructure:"password" json:"password" yaml:"password" validate:"required"`
}

func (c Credentials) String() string {
	return fmt.Sprintf("{Username:%s Password:***}", c.Username)
}

// MarshalJSON redacts Password so Credentials never appears in plaintext in
// logged or persisted JSON.
func (c Credentials) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"username":%q,"password":"***"}`, c.Username)), nil
}

// ConnectionParameters is the validated configuration shared by the pool,
// the file system, and the orchestrator. Build one with NewConnectionParameters
// and treat it as immutable afterward.
type ConnectionParameters struct {
	Host           string            `mapstructure:"host" json:"host" yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port           int               `mapstructure:"port" json:"port" yaml:"port" validate:"min=0,max=65535"`
	Credentials    Credentials       `mapstructure:"credentials" json:"credentials" yaml:"credentials" validate:"required"`
	Timeout        time.Duration     `mapstructure:"timeout" json:"timeout" yaml:"timeout" validate:"min=0"`
	MaxConnections int               `mapstructure:"max_connections" json:"max_connections" yaml:"max_connections" validate:"required,min=1"`
	MaxWorkers     int               `mapstructure:"max_workers" json:"max_workers" yaml:"max_workers" validate:"required,min=1"`
	ExtraOptions   map[string]string `mapstructure:"extra_options" json:"extra_options" yaml:"extra_options"`
}

// NewConnectionParameters fills in defaults for zero-valued fields and then
// validates the result, returning a *ConfigError on any validation failure.
func NewConnectionParameters(host string, port int, creds Credentials) (*ConnectionParameters, error) {
	p := &ConnectionParameters{
		Host:           host,
		Port:           port,
		Credentials:    creds,
		Timeout:        DefaultTimeout,
		MaxConnections: DefaultMaxConnections,
		MaxWorkers:     DefaultMaxWorkers,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate runs struct-tag validation and reports the first failing field
// wrapped as a *ConfigError.
func (p *ConnectionParameters) Validate() error {
	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
	if p.MaxConnections == 0 {
		p.MaxConnections = DefaultMaxConnections
	}
	if p.MaxWorkers == 0 {
		p.MaxWorkers = DefaultMaxWorkers
	}

	if err := validate.Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{
				Field: fe.Namespace(),
				Err:   fmt.Errorf("failed constraint %q", fe.ActualTag()),
			}
		}
		return &ConfigError{Err: err}
	}
	return nil
}

// defaultFTPPort is used for dialing when Port is 0. A Port of 0 is a valid
// ConnectionParameters value meaning "use the standard port, and omit it
// when rendering URLs" (see transfer.EnsureFTPURL); the dialer itself still
// needs a concrete TCP port to connect to.
const defaultFTPPort = 21

// Addr returns "host:port" for dialing, substituting defaultFTPPort when
// Port is 0.
func (p *ConnectionParameters) Addr() string {
	port := p.Port
	if port <= 0 {
		port = defaultFTPPort
	}
	return fmt.Sprintf("%s:%d", p.Host, port)
}

func (p *ConnectionParameters) String() string {
	return fmt.Sprintf(
		"ConnectionParameters{Host:%s Port:%d Credentials:%s Timeout:%s MaxConnections:%d MaxWorkers:%d}",
		p.Host, p.Port, p.Credentials, p.Timeout, p.MaxConnections, p.MaxWorkers,
	)
}
