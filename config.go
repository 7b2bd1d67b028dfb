package oracle

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"gorm.io/driver/oracle/quoting"
)

const (
	DefaultPort             = 1521
	DefaultStatementLimit   = 250
	DefaultLOBChunkSize     = 32767
	DefaultKeepaliveMinutes = 10
)

// Config describes how to reach one database and how sessions behave once
// connected. Keys not listed here are ignored when decoding.
type Config struct {
	// Driver forces a registered backend, "godror" or "goora". Empty picks
	// the preferred backend for the build.
	Driver string `mapstructure:"driver"`

	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Database is a service name, or a TNS alias or full connect
	// descriptor when Host is empty.
	Database string `mapstructure:"database"`
	SID      string `mapstructure:"sid"`

	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Schema    string `mapstructure:"schema"`
	Privilege string `mapstructure:"privilege"`

	TimeZone      string `mapstructure:"time_zone"`
	CursorSharing string `mapstructure:"cursor_sharing"`
	PrefetchRows  int    `mapstructure:"prefetch_rows"`

	TCPKeepalive bool `mapstructure:"tcp_keepalive"`
	// TCPKeepaliveTime is the keepalive interval in minutes.
	TCPKeepaliveTime int `mapstructure:"tcp_keepalive_time"`

	// JNDI and DataSource name a *sql.DB registered with RegisterDataSource;
	// when set, connections are taken from it instead of being opened.
	JNDI       string `mapstructure:"jndi"`
	DataSource string `mapstructure:"datasource"`

	AutoRetry       bool   `mapstructure:"auto_retry"`
	StatementLimit  int    `mapstructure:"statement_limit"`
	EmulateBooleans bool   `mapstructure:"emulate_booleans"`
	BooleanStyle    string `mapstructure:"boolean_style"`
	LOBChunkSize    int    `mapstructure:"lob_chunk_size"`
}

func DefaultConfig() Config {
	return Config{
		Port:             DefaultPort,
		TCPKeepaliveTime: DefaultKeepaliveMinutes,
		AutoRetry:        true,
		StatementLimit:   DefaultStatementLimit,
		EmulateBooleans:  true,
		BooleanStyle:     "number",
		LOBChunkSize:     DefaultLOBChunkSize,
	}
}

// ParseConfig decodes a configuration mapping onto DefaultConfig and
// validates the result. Values may be given as strings.
func ParseConfig(values map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(values); err != nil {
		return cfg, errors.Wrap(ErrArgument, err.Error())
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads a YAML file holding one configuration mapping.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	values := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return Config{}, errors.Wrapf(ErrArgument, "parse config %s: %v", path, err)
	}
	return ParseConfig(values)
}

func (cfg Config) Validate() error {
	if cfg.DataSourceName() == "" {
		if cfg.Username == "" {
			return errors.Wrap(ErrArgument, "username is required")
		}
		if cfg.Host == "" && cfg.Database == "" {
			return errors.Wrap(ErrArgument, "host or database is required")
		}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return errors.Wrapf(ErrArgument, "port %d out of range", cfg.Port)
	}
	switch strings.ToLower(cfg.Privilege) {
	case "", "normal", "sysdba", "sysoper":
	default:
		return errors.Wrapf(ErrArgument, "unknown privilege %q", cfg.Privilege)
	}
	switch strings.ToLower(cfg.CursorSharing) {
	case "", "exact", "force", "similar":
	default:
		return errors.Wrapf(ErrArgument, "unknown cursor_sharing %q", cfg.CursorSharing)
	}
	if _, err := quoting.ParseBooleanStyle(cfg.BooleanStyle); err != nil {
		return errors.Wrap(ErrArgument, err.Error())
	}
	if cfg.PrefetchRows < 0 || cfg.StatementLimit < 0 {
		return errors.Wrap(ErrArgument, "prefetch_rows and statement_limit must not be negative")
	}
	if cfg.LOBChunkSize < 1 || cfg.LOBChunkSize > DefaultLOBChunkSize {
		return errors.Wrapf(ErrArgument, "lob_chunk_size must be between 1 and %d", DefaultLOBChunkSize)
	}
	if cfg.Schema != "" && !quoting.ValidTableName(cfg.Schema) {
		return errors.Wrapf(ErrArgument, "invalid schema %q", cfg.Schema)
	}
	return nil
}

// DataSourceName is the registered datasource to borrow sessions from.
func (cfg Config) DataSourceName() string {
	if cfg.DataSource != "" {
		return cfg.DataSource
	}
	return cfg.JNDI
}

func (cfg Config) SysDBA() bool  { return strings.EqualFold(cfg.Privilege, "sysdba") }
func (cfg Config) SysOper() bool { return strings.EqualFold(cfg.Privilege, "sysoper") }

func (cfg Config) port() int {
	if cfg.Port == 0 {
		return DefaultPort
	}
	return cfg.Port
}

// ConnectDescriptor returns what the client libraries expect as connect
// string: Database itself when there is no host, a full descriptor when
// connecting by SID, and an EZConnect string otherwise.
func (cfg Config) ConnectDescriptor() string {
	if cfg.Host == "" {
		return cfg.Database
	}

	if cfg.SID != "" {
		var b strings.Builder
		b.WriteString("(DESCRIPTION=")
		if cfg.TCPKeepalive {
			b.WriteString("(ENABLE=BROKEN)")
		}
		fmt.Fprintf(&b, "(ADDRESS=(PROTOCOL=TCP)(HOST=%s)(PORT=%d))", cfg.Host, cfg.port())
		fmt.Fprintf(&b, "(CONNECT_DATA=(SID=%s)))", cfg.SID)
		return b.String()
	}

	descriptor := cfg.Host + ":" + strconv.Itoa(cfg.port()) + "/" + cfg.Database
	if cfg.TCPKeepalive {
		descriptor += "?expire_time=" + strconv.Itoa(cfg.TCPKeepaliveTime)
	}
	return descriptor
}

// QuotingConfig is the quoting policy sessions built from cfg use.
func (cfg Config) QuotingConfig() quoting.Config {
	style, _ := quoting.ParseBooleanStyle(cfg.BooleanStyle)
	return quoting.Config{EmulateBooleans: cfg.EmulateBooleans, BooleanStyle: style}
}

// SessionStatements are run on every new physical session so implicit
// conversions match the quoting layouts.
func SessionStatements(cfg Config) []string {
	stmts := []string{
		"ALTER SESSION SET NLS_DATE_FORMAT = '" + quoting.NLSDateFormat + "'",
		"ALTER SESSION SET NLS_TIMESTAMP_FORMAT = '" + quoting.NLSTimestampFormat + "'",
	}
	if cfg.TimeZone != "" {
		stmts = append(stmts, "ALTER SESSION SET TIME_ZONE = '"+quoting.QuoteString(cfg.TimeZone)+"'")
	}
	if cfg.CursorSharing != "" {
		stmts = append(stmts, "ALTER SESSION SET CURSOR_SHARING = "+strings.ToUpper(cfg.CursorSharing))
	}
	if cfg.Schema != "" {
		stmts = append(stmts, "ALTER SESSION SET CURRENT_SCHEMA = "+quoting.Default.QuoteColumnName(strings.ToLower(cfg.Schema)))
	}
	return stmts
}
