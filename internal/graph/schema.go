package graph

// unitFile mirrors the TOML layout of one declaration-graph fixture.
type unitFile struct {
	Unit     string           `toml:"unit"`
	Packages []packageSection `toml:"package"`
	Classes  []classSection   `toml:"class"`
	Members  []memberSection  `toml:"member"`
}

type packageSection struct {
	Path string `toml:"path"`
}

type classSection struct {
	Name       string   `toml:"name"`
	Package    string   `toml:"package"`
	Extends    []string `toml:"extends"`
	Rename     string   `toml:"rename"`
	Visibility string   `toml:"visibility"`
	Native     bool     `toml:"native"`
	Library    bool     `toml:"library"`
}

type memberSection struct {
	Owner        string   `toml:"owner"`
	Kind         string   `toml:"kind"`
	Name         string   `toml:"name"`
	Visibility   string   `toml:"visibility"`
	Rename       string   `toml:"rename"`
	Extension    bool     `toml:"extension"`
	Mutable      bool     `toml:"mutable"`
	Primary      bool     `toml:"primary"`
	Native       bool     `toml:"native"`
	Library      bool     `toml:"library"`
	Overrides    []string `toml:"overrides"`
	GetterRename string   `toml:"getter_rename"`
	SetterRename string   `toml:"setter_rename"`
}
