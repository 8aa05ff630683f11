package validate

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"linotpadm/internal/schema"
)

const redacted = "********"

// ResolverConfig is the typed configuration of a setresolver invocation.
// It is one of *FileResolver, *LDAPResolver or *SQLResolver.
type ResolverConfig interface {
	Type() schema.ResolverType
	// Summary returns the settings for logging with secrets masked
	Summary() map[string]interface{}
}

// FileResolver reads users from a passwd style file on the server
type FileResolver struct {
	File string `mapstructure:"rf_file"`
}

func (r *FileResolver) Type() schema.ResolverType { return schema.ResolverFile }

func (r *FileResolver) Summary() map[string]interface{} {
	return map[string]interface{}{"file": r.File}
}

// LDAPResolver reads users from an LDAP directory
type LDAPResolver struct {
	URI            string            `mapstructure:"rl_uri"`
	BaseDN         string            `mapstructure:"rl_basedn"`
	BindDN         string            `mapstructure:"rl_binddn"`
	BindPassword   string            `mapstructure:"rl_bindpw"`
	LoginAttribute string            `mapstructure:"rl_loginattr"`
	SearchFilter   string            `mapstructure:"rl_searchfilter"`
	UserFilter     string            `mapstructure:"rl_userfilter"`
	AttributeMap   map[string]string `mapstructure:"rl_attrmap"`
	Timeout        string            `mapstructure:"rl_timeout"`
	SizeLimit      int               `mapstructure:"rl_sizelimit"`
	UIDType        string            `mapstructure:"rl_uidtype"`
	NoReferrals    bool              `mapstructure:"rl_noreferrals"`
	EnforceTLS     bool              `mapstructure:"rl_enforcetls"`
	Proxy          bool              `mapstructure:"rl_proxy"`
	CACertificate  string            `mapstructure:"rl_cacertificate"`
}

func (r *LDAPResolver) Type() schema.ResolverType { return schema.ResolverLDAP }

func (r *LDAPResolver) Summary() map[string]interface{} {
	return map[string]interface{}{
		"uri":          r.URI,
		"base_dn":      r.BaseDN,
		"bind_dn":      r.BindDN,
		"bind_pw":      redacted,
		"login_attr":   r.LoginAttribute,
		"attributes":   len(r.AttributeMap),
		"timeout":      r.Timeout,
		"enforce_tls":  r.EnforceTLS,
		"no_referrals": r.NoReferrals,
	}
}

// SQLResolver reads users from a database table
type SQLResolver struct {
	Driver           string            `mapstructure:"rs_driver"`
	Server           string            `mapstructure:"rs_server"`
	Port             int               `mapstructure:"rs_port"`
	Database         string            `mapstructure:"rs_db"`
	User             string            `mapstructure:"rs_user"`
	Password         string            `mapstructure:"rs_password"`
	Table            string            `mapstructure:"rs_table"`
	AttributeMap     map[string]string `mapstructure:"rs_attrmap"`
	Where            string            `mapstructure:"rs_where"`
	Encoding         string            `mapstructure:"rs_encoding"`
	Limit            int               `mapstructure:"rs_limit"`
	ConnectionParams string            `mapstructure:"rs_conparams"`
}

func (r *SQLResolver) Type() schema.ResolverType { return schema.ResolverSQL }

func (r *SQLResolver) Summary() map[string]interface{} {
	return map[string]interface{}{
		"driver":     r.Driver,
		"server":     r.Server,
		"port":       r.Port,
		"database":   r.Database,
		"user":       r.User,
		"password":   redacted,
		"table":      r.Table,
		"attributes": len(r.AttributeMap),
	}
}

var stringMapType = reflect.TypeOf(map[string]string{})

// mappingHook turns a mapping parameter into a map
func mappingHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != stringMapType {
		return data, nil
	}
	return schema.ParseMapping(data.(string))
}

func decodeResolver(rt schema.ResolverType, params schema.ParameterSet) (ResolverConfig, error) {
	var target ResolverConfig
	switch rt {
	case schema.ResolverFile:
		target = &FileResolver{}
	case schema.ResolverLDAP:
		target = &LDAPResolver{}
	case schema.ResolverSQL:
		target = &SQLResolver{}
	default:
		return nil, schema.NewParameterError(schema.ErrUnknownResolverType, "rtype", "%q", string(rt))
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mappingHook,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating resolver decoder: %w", err)
	}

	if err := decoder.Decode(map[string]string(params)); err != nil {
		return nil, fmt.Errorf("error decoding %s resolver settings: %w", rt, err)
	}
	return target, nil
}
