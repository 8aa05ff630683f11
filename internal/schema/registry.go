package schema

import (
	"sort"
)

const (
	controllerAdmin  = "admin"
	controllerSystem = "system"
)

func required(p ParameterSpec) ParameterSpec {
	p.Required = true
	return p
}

func wire(p ParameterSpec, name string) ParameterSpec {
	p.Wire = name
	return p
}

var (
	serialParam   = ParameterSpec{Name: "serial", Help: "token serial number"}
	userParam     = ParameterSpec{Name: "user", Help: "login name of the token owner"}
	realmParam    = ParameterSpec{Name: "realm", Help: "realm name"}
	resolverParam = ParameterSpec{Name: "resolver", Help: "resolver name, or a comma-separated list of resolver class names for setrealm"}
	pinParam      = ParameterSpec{Name: "pin", Help: "token PIN"}
	descParam     = ParameterSpec{Name: "description", Help: "token description"}
	otplenParam   = ParameterSpec{Name: "otplen", Kind: KindInt, Help: "OTP length"}
	exportParam   = ParameterSpec{Name: "export_fields", Kind: KindList, Help: "extra user fields to add to each record"}

	tokenSelector = Selector{Name: "serial|user", Members: []string{"serial", "user"}, Required: true, Exclusive: true}
)

var globals = []ParameterSpec{
	{Name: "url", Short: "U", Local: true, Help: "base URL of the management API, e.g. https://otp.example.com"},
	{Name: "protocol", Kind: KindEnum, Values: []string{"http", "https"}, Local: true, Help: "protocol used when --url is not given"},
	{Name: "host", Local: true, Help: "host[:port] used when --url is not given"},
	{Name: "admin", Short: "a", Local: true, Help: "administrator login"},
	{Name: "password", Local: true, Help: "administrator password (prompted when --admin is set and this is not)"},
	{Name: "cert", Short: "c", Local: true, Help: "client certificate (PEM)"},
	{Name: "key", Short: "k", Local: true, Help: "client certificate key (PEM)"},
	{Name: "command", Short: "C", Local: true, Help: "command to run"},
	{Name: "automate", Local: true, Help: "automation file with a [Default] section"},
	{Name: "verbose", Kind: KindFlag, Local: true, Help: "enable debug logging"},
	{Name: "logfile", Local: true, Help: "also write logs to this file"},
	{Name: "csv", Kind: KindFlag, Local: true, Help: "print records as CSV"},
}

var registry = map[Command]CommandSpec{
	ListToken: {
		Controller: controllerAdmin,
		Endpoint:   "list",
		Listing:    true,
		Params: []ParameterSpec{
			serialParam,
			userParam,
			realmParam,
			wire(exportParam, "user_fields"),
		},
		Help: "list tokens",
	},
	ListUser: {
		Controller: controllerAdmin,
		Endpoint:   "userlist",
		Listing:    true,
		Params: []ParameterSpec{
			{Name: "username", Default: "*", Help: "login name filter"},
			realmParam,
			wire(resolverParam, "resConf"),
			{Name: "export_fields", Kind: KindList, Local: true, Help: exportParam.Help},
		},
		Help: "list users",
	},
	InitToken: {
		Controller: controllerAdmin,
		Endpoint:   "init",
		Params: []ParameterSpec{
			serialParam,
			userParam,
			realmParam,
			pinParam,
			descParam,
			{Name: "otpkey", Help: "hex encoded OTP seed; generated by the server when absent"},
			otplenParam,
			{Name: "etng", Kind: KindFlag, Help: "enroll an eToken NG"},
			{Name: "pytoken", Kind: KindFlag, Help: "enroll a software token"},
			{Name: "type", Kind: KindEnum, Values: []string{"HMAC", "motp"}, Default: "HMAC", Help: "token type"},
		},
		Exclusive: []ExclusiveGroup{
			{Name: "token generation mode", Members: []string{"etng", "pytoken", "type"}},
		},
		Conditions: []Condition{
			{Param: "type", Value: "motp", Requires: []string{"otpkey", "pin"}},
		},
		Help: "enroll a new token",
	},
	AssignToken: {
		Controller: controllerAdmin,
		Endpoint:   "assign",
		Params: []ParameterSpec{
			required(serialParam),
			required(userParam),
			realmParam,
			pinParam,
		},
		Help: "assign a token to a user",
	},
	UnassignToken: {
		Controller: controllerAdmin,
		Endpoint:   "unassign",
		Params: []ParameterSpec{
			required(serialParam),
		},
		Help: "remove the owner of a token",
	},
	ImportToken: {
		Controller: controllerAdmin,
		Endpoint:   "load/tokens",
		Params: []ParameterSpec{
			{Name: "file", Short: "f", Required: true, Upload: true, Help: "token seed file to import"},
			wire(ParameterSpec{
				Name:   "format",
				Kind:   KindEnum,
				Values: []string{"aladdin-xml", "oathcsv", "yubikeycsv", "pskc", "feitian", "dpw"},
				Help:   "format of the token file",
			}, "type"),
			{Name: "pskc_type", Help: "PSKC key protection type"},
			{Name: "pskc_password", Help: "PSKC key protection password"},
		},
		Help: "import tokens from a seed file",
	},
	DisableToken: {
		Controller: controllerAdmin,
		Endpoint:   "disable",
		Params:     []ParameterSpec{serialParam, userParam},
		Selectors:  []Selector{tokenSelector},
		Help:       "disable tokens",
	},
	EnableToken: {
		Controller: controllerAdmin,
		Endpoint:   "enable",
		Params:     []ParameterSpec{serialParam, userParam},
		Selectors:  []Selector{tokenSelector},
		Help:       "enable tokens",
	},
	RemoveToken: {
		Controller: controllerAdmin,
		Endpoint:   "remove",
		Params:     []ParameterSpec{serialParam, userParam},
		Selectors:  []Selector{tokenSelector},
		Help:       "delete tokens",
	},
	ResyncToken: {
		Controller: controllerAdmin,
		Endpoint:   "resync",
		Params: []ParameterSpec{
			serialParam,
			userParam,
			{Name: "otp1", Required: true, Help: "first OTP value"},
			{Name: "otp2", Required: true, Help: "second, consecutive OTP value"},
		},
		Selectors: []Selector{tokenSelector},
		Help:      "resynchronise a token",
	},
	Set: {
		Controller: controllerAdmin,
		Endpoint:   "set",
		Params: []ParameterSpec{
			serialParam,
			userParam,
			pinParam,
			descParam,
			{Name: "maxfailcount", Kind: KindInt, Wire: "MaxFailCount", Help: "failed logins before the token is locked"},
			{Name: "window", Kind: KindInt, Wire: "SyncWindow", Help: "resync window size"},
			wire(otplenParam, "OtpLen"),
			{Name: "counterwindow", Kind: KindInt, Wire: "CounterWindow", Help: "look-ahead window for counter based tokens"},
			{Name: "hashlib", Kind: KindEnum, Values: []string{"sha1", "sha256", "sha512"}, Help: "HMAC hash algorithm"},
		},
		Selectors: []Selector{
			tokenSelector,
			{Name: "token attribute", Members: []string{"pin", "description", "maxfailcount", "window", "otplen", "counterwindow", "hashlib"}, Required: true},
		},
		Help: "set token attributes",
	},
	SecurityModule: {
		Controller: controllerSystem,
		Endpoint:   "setupSecurityModule",
		Params: []ParameterSpec{
			{Name: "module", Wire: "hsm_id", Help: "security module to unlock"},
			{Name: "module_password", Wire: "password", Help: "security module password (prompted when --module is set)"},
		},
		Help: "show or unlock the security module",
	},
	GetConfig: {
		Controller: controllerSystem,
		Endpoint:   "getConfig",
		Listing:    true,
		Help:       "show the server configuration",
	},
	SetConfig: {
		Controller: controllerSystem,
		Endpoint:   "setConfig",
		Params: []ParameterSpec{
			{Name: "config", Kind: KindMap, Required: true, Help: "entries to set, key=value,key2=value2 or a JSON object"},
		},
		Help: "change server configuration entries",
	},
	GetRealms: {
		Controller: controllerSystem,
		Endpoint:   "getRealms",
		Listing:    true,
		Help:       "list realms",
	},
	SetRealm: {
		Controller: controllerSystem,
		Endpoint:   "setRealm",
		Params: []ParameterSpec{
			required(realmParam),
			{Name: "resolver", Kind: KindList, Required: true, Wire: "resolvers", Help: resolverParam.Help},
		},
		Help: "create or change a realm",
	},
	DeleteRealm: {
		Controller: controllerSystem,
		Endpoint:   "deleteRealm",
		Params:     []ParameterSpec{required(realmParam)},
		Help:       "delete a realm",
	},
	SetDefaultRealm: {
		Controller: controllerSystem,
		Endpoint:   "setDefaultRealm",
		Params:     []ParameterSpec{required(realmParam)},
		Help:       "make a realm the default realm",
	},
	GetResolvers: {
		Controller: controllerSystem,
		Endpoint:   "getResolvers",
		Listing:    true,
		Help:       "list resolvers",
	},
	DeleteResolver: {
		Controller: controllerSystem,
		Endpoint:   "deleteResolver",
		Params:     []ParameterSpec{required(resolverParam)},
		Help:       "delete a resolver",
	},
	SetResolver: {
		Controller: controllerSystem,
		Endpoint:   "setResolver",
		Params: []ParameterSpec{
			wire(required(resolverParam), "name"),
			{Name: "rtype", Kind: KindEnum, Values: []string{"FILE", "LDAP", "SQL"}, Wire: "type", Help: "resolver type: FILE, LDAP or SQL"},
		},
		Help: "create or change a resolver",
	},
}

var resolverRegistry = map[ResolverType][]ParameterSpec{
	ResolverFile: {
		{Name: "rf_file", Required: true, Wire: "fileName", Help: "passwd style file on the server"},
	},
	ResolverLDAP: {
		{Name: "rl_uri", Required: true, Wire: "LDAPURI", Help: "LDAP server URI"},
		{Name: "rl_basedn", Required: true, Wire: "LDAPBASE", Help: "search base DN"},
		{Name: "rl_binddn", Required: true, Wire: "BINDDN", Help: "bind DN"},
		{Name: "rl_bindpw", Required: true, Wire: "BINDPW", Help: "bind password"},
		{Name: "rl_loginattr", Required: true, Wire: "LOGINNAMEATTRIBUTE", Help: "attribute holding the login name"},
		{Name: "rl_searchfilter", Required: true, Wire: "LDAPSEARCHFILTER", Help: "filter used to list users"},
		{Name: "rl_userfilter", Required: true, Wire: "LDAPFILTER", Help: "filter used to find one user, %s is the login name"},
		{Name: "rl_attrmap", Kind: KindMap, Required: true, Wire: "USERINFO", Help: "user field to LDAP attribute mapping"},
		{Name: "rl_timeout", Kind: KindTimeout, Wire: "TIMEOUT", Help: "timeout in seconds, or network;response"},
		{Name: "rl_sizelimit", Kind: KindInt, Wire: "SIZELIMIT", Help: "maximum number of search results"},
		{Name: "rl_uidtype", Wire: "UIDTYPE", Help: "attribute used as unique user id"},
		{Name: "rl_noreferrals", Kind: KindFlag, Wire: "NOREFERRALS", Help: "do not follow referrals"},
		{Name: "rl_enforcetls", Kind: KindFlag, Wire: "EnforceTLS", Help: "require StartTLS"},
		{Name: "rl_proxy", Kind: KindFlag, Wire: "PROXY", Help: "search through an LDAP proxy"},
		{Name: "rl_cacertificate", Wire: "CACERTIFICATE", Help: "CA certificate (PEM) for the LDAP server"},
	},
	ResolverSQL: {
		{Name: "rs_driver", Required: true, Wire: "Driver", Help: "database driver"},
		{Name: "rs_server", Required: true, Wire: "Server", Help: "database server"},
		{Name: "rs_port", Kind: KindInt, Wire: "Port", Help: "database port"},
		{Name: "rs_db", Required: true, Wire: "Database", Help: "database name"},
		{Name: "rs_user", Required: true, Wire: "User", Help: "database user"},
		{Name: "rs_password", Required: true, Wire: "Password", Help: "database password"},
		{Name: "rs_table", Required: true, Wire: "Table", Help: "user table"},
		{Name: "rs_attrmap", Kind: KindMap, Required: true, Wire: "Map", Help: "user field to column mapping"},
		{Name: "rs_where", Wire: "Where", Help: "additional WHERE clause"},
		{Name: "rs_encoding", Wire: "Encoding", Help: "database encoding"},
		{Name: "rs_limit", Kind: KindInt, Wire: "Limit", Help: "maximum number of rows"},
		{Name: "rs_conparams", Wire: "conParams", Help: "extra connection parameters"},
	},
}

var commandOrder = []Command{
	ListToken, ListUser, InitToken, AssignToken, UnassignToken, ImportToken,
	DisableToken, EnableToken, RemoveToken, ResyncToken, Set, SecurityModule,
	GetConfig, SetConfig, GetRealms, SetRealm, DeleteRealm, SetDefaultRealm,
	GetResolvers, DeleteResolver, SetResolver,
}

// Commands lists every command in manual order.
func Commands() []Command {
	out := make([]Command, len(commandOrder))
	copy(out, commandOrder)
	return out
}

// SpecFor returns the registry entry of cmd.
func SpecFor(cmd Command) (CommandSpec, error) {
	spec, ok := registry[cmd]
	if !ok {
		return CommandSpec{}, NewParameterError(ErrUnknownCommand, "command", "%q", string(cmd))
	}
	spec.Command = cmd
	spec.Params = append([]ParameterSpec(nil), spec.Params...)
	return spec, nil
}

// ResolverSpecFor returns the parameters a resolver type adds to setresolver.
func ResolverSpecFor(rt ResolverType) ([]ParameterSpec, error) {
	specs, ok := resolverRegistry[rt]
	if !ok {
		return nil, NewParameterError(ErrUnknownResolverType, "rtype", "%q is not one of FILE, LDAP, SQL", string(rt))
	}
	return append([]ParameterSpec(nil), specs...), nil
}

// Globals returns the parameters every command accepts.
func Globals() []ParameterSpec {
	return append([]ParameterSpec(nil), globals...)
}

// AllParameters returns one spec per distinct parameter name across globals,
// commands and resolver types, sorted by name. The first definition of a
// name wins, globals first.
func AllParameters() []ParameterSpec {
	seen := make(map[string]bool)
	var out []ParameterSpec
	add := func(specs []ParameterSpec) {
		for _, p := range specs {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			out = append(out, p)
		}
	}

	add(globals)
	for _, cmd := range commandOrder {
		add(registry[cmd].Params)
	}
	for _, rt := range ResolverTypes() {
		add(resolverRegistry[rt])
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
