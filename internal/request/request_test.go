package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linotpadm/internal/schema"
	"linotpadm/internal/validate"
)

func build(t *testing.T, cmd schema.Command, params schema.ParameterSet, opts ...validate.Option) *Request {
	t.Helper()
	inv, err := validate.Validate(cmd, params, opts...)
	require.NoError(t, err)
	req, err := Build(inv)
	require.NoError(t, err)
	return req
}

func TestBuildIsDeterministic(t *testing.T) {
	params := schema.ParameterSet{
		"user":        "alice",
		"realm":       "corp",
		"pin":         "1234",
		"description": "laptop",
		"otplen":      "8",
		"admin":       "admin",
		"password":    "s3cret",
	}

	first := build(t, schema.InitToken, params)
	for i := 0; i < 20; i++ {
		again := build(t, schema.InitToken, params.Clone())
		assert.Equal(t, first, again)
		assert.Equal(t, first.Encode(), again.Encode())
	}
	assert.Equal(t, "description=laptop&otplen=8&pin=1234&realm=corp&type=HMAC&user=alice", first.Encode())
}

func TestBuildSetRealm(t *testing.T) {
	req := build(t, schema.SetRealm, schema.ParameterSet{
		"realm":    "corp",
		"resolver": "ldap1, files",
		"admin":    "admin",
		"url":      "https://otp.example.com",
	})

	assert.Equal(t, "setRealm", req.Endpoint)
	assert.Equal(t, "/system/setRealm", req.Path())
	assert.Equal(t, []Param{
		{Name: "realm", Value: "corp"},
		{Name: "resolvers", Value: "ldap1,files"},
	}, req.Params)
}

func TestBuildSetResolverLDAP(t *testing.T) {
	req := build(t, schema.SetResolver, schema.ParameterSet{
		"resolver":        "corp",
		"rtype":           "ldap",
		"rl_uri":          "ldaps://ldap.example.com",
		"rl_basedn":       "dc=example,dc=com",
		"rl_binddn":       "cn=reader,dc=example,dc=com",
		"rl_bindpw":       "hunter2",
		"rl_loginattr":    "uid",
		"rl_searchfilter": "(uid=*)",
		"rl_userfilter":   "(uid=%s)",
		"rl_attrmap":      "username=uid",
		"rl_noreferrals":  "true",
		"rl_enforcetls":   "false",
		"rl_proxy":        "1",
	})

	assert.Equal(t, "/system/setResolver", req.Path())

	want := map[string]string{
		"BINDDN":             "cn=reader,dc=example,dc=com",
		"BINDPW":             "hunter2",
		"LDAPBASE":           "dc=example,dc=com",
		"LDAPFILTER":         "(uid=%s)",
		"LDAPSEARCHFILTER":   "(uid=*)",
		"LDAPURI":            "ldaps://ldap.example.com",
		"LOGINNAMEATTRIBUTE": "uid",
		"NOREFERRALS":        "1",
		"PROXY":              "1",
		"USERINFO":           `{"username":"uid"}`,
		"name":               "corp",
		"type":               "ldapresolver",
	}
	assert.Equal(t, want, flatten(req.Values()))

	_, sent := req.Get("EnforceTLS")
	assert.False(t, sent)
}

func TestBuildSetResolverSQL(t *testing.T) {
	req := build(t, schema.SetResolver, schema.ParameterSet{
		"resolver":    "accounts",
		"rtype":       "SQL",
		"rs_driver":   "mysql",
		"rs_server":   "db.example.com",
		"rs_port":     "3306",
		"rs_db":       "users",
		"rs_user":     "linotp",
		"rs_password": "dbsecret",
		"rs_table":    "accounts",
		"rs_attrmap":  "username=login",
		"rs_where":    "active=1",
	})

	assert.Equal(t, "/system/setResolver", req.Path())
	assert.Equal(t, map[string]string{
		"Database": "users",
		"Driver":   "mysql",
		"Map":      `{"username":"login"}`,
		"Password": "dbsecret",
		"Port":     "3306",
		"Server":   "db.example.com",
		"Table":    "accounts",
		"User":     "linotp",
		"Where":    "active=1",
		"name":     "accounts",
		"type":     "sqlresolver",
	}, flatten(req.Values()))
	assert.Equal(t,
		"Database=users&Driver=mysql&Map=%7B%22username%22%3A%22login%22%7D&Password=dbsecret&Port=3306"+
			"&Server=db.example.com&Table=accounts&User=linotp&Where=active%3D1&name=accounts&type=sqlresolver",
		req.Encode())
}

func TestBuildSetResolverPersistedType(t *testing.T) {
	req := build(t, schema.SetResolver,
		schema.ParameterSet{"resolver": "local", "rf_file": "/etc/users"},
		validate.WithPersistedResolverType(schema.ResolverFile),
	)

	assert.Equal(t, []Param{
		{Name: "fileName", Value: "/etc/users"},
		{Name: "name", Value: "local"},
		{Name: "type", Value: "passwdresolver"},
	}, req.Params)
}

func TestBuildSetConfigExpandsEntries(t *testing.T) {
	req := build(t, schema.SetConfig, schema.ParameterSet{"config": "splitAtSign=true, DefaultMaxFailCount=10"})

	assert.Equal(t, []Param{
		{Name: "DefaultMaxFailCount", Value: "10"},
		{Name: "splitAtSign", Value: "true"},
	}, req.Params)
}

func TestBuildImportTokenUpload(t *testing.T) {
	req := build(t, schema.ImportToken, schema.ParameterSet{"file": "tokens.xml", "format": "PSKC"})

	require.NotNil(t, req.Upload)
	assert.Equal(t, Upload{Field: "file", Path: "tokens.xml"}, *req.Upload)
	assert.Equal(t, []Param{{Name: "type", Value: "pskc"}}, req.Params)
	assert.Equal(t, "/admin/load/tokens", req.Path())
}

func TestBuildDropsPassthroughAndLocalKeys(t *testing.T) {
	req := build(t, schema.ListToken, schema.ParameterSet{
		"serial":        "OATH0001",
		"export_fields": "email,mobile",
		"csv":           "true",
		"csv_format":    ";",
		"mail_host":     "smtp.example.com",
	})

	assert.Equal(t, []Param{
		{Name: "serial", Value: "OATH0001"},
		{Name: "user_fields", Value: "email,mobile"},
	}, req.Params)
}

func TestBuildSetUsesBackendNames(t *testing.T) {
	req := build(t, schema.Set, schema.ParameterSet{
		"serial":       "OATH0001",
		"maxfailcount": "5",
		"window":       "100",
		"hashlib":      "SHA256",
	})

	assert.Equal(t, "MaxFailCount=5&SyncWindow=100&hashlib=sha256&serial=OATH0001", req.Encode())
}

func TestBuildEncodesSpecialCharacters(t *testing.T) {
	req := build(t, schema.AssignToken, schema.ParameterSet{"serial": "OATH 01", "user": "alice@corp"})
	assert.Equal(t, "serial=OATH+01&user=alice%40corp", req.Encode())
}

func flatten(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v[0]
	}
	return out
}

func TestBuildSetRealmWithResolverClass(t *testing.T) {
	req := build(t, schema.SetRealm, schema.ParameterSet{
		"realm":    "myRealm",
		"resolver": "useridresolver.LDAPIdResolver.IdResolver.newldap",
	})

	assert.Equal(t, "setRealm", req.Endpoint)
	assert.Equal(t, "realm=myRealm&resolvers=useridresolver.LDAPIdResolver.IdResolver.newldap", req.Encode())
}
