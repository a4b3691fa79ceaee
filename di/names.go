package di

// BaseNames holds the capability keys registered by the bootstrap layer for
// every application.
type BaseNames struct {
	Config Key
	Logger Key
}

// Base is the set of capability keys registered before any module.
var Base = BaseNames{
	Config: "modkit.config",
	Logger: "modkit.logger",
}
