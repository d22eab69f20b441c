package generator

import (
	"encoding/xml"
	"fmt"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
)

type buildTimeConfig struct {
	XMLName xml.Name `xml:"config"`
	ORM     struct {
		Datasources struct {
			Default     string                `xml:"default,attr"`
			Datasources []buildTimeDatasource `xml:"datasource"`
		} `xml:"datasources"`
	} `xml:"orm"`
}

type buildTimeDatasource struct {
	ID         string `xml:"id,attr"`
	Adapter    string `xml:"adapter"`
	Connection struct {
		DSN      string `xml:"dsn"`
		User     string `xml:"user"`
		Password string `xml:"password"`
	} `xml:"connection"`
}

// BuildTimeConfig renders the buildtime-conf.xml of cfg: the default
// connection and one datasource element per configured connection.
func BuildTimeConfig(cfg *config.Config) ([]byte, error) {
	var doc buildTimeConfig
	doc.ORM.Datasources.Default = cfg.DefaultConnection
	for _, ds := range cfg.Datasources {
		d := buildTimeDatasource{ID: ds.Name, Adapter: ds.Adapter}
		d.Connection.DSN = ds.DSN
		d.Connection.User = ds.User
		d.Connection.Password = ds.Password
		doc.ORM.Datasources.Datasources = append(doc.ORM.Datasources.Datasources, d)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render build time configuration: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// ConnectionDSNs translates connection names to the generator's connection
// argument format, name=dsn;user=...;password=...
func ConnectionDSNs(cfg *config.Config, names []string) ([]string, error) {
	dsns := make([]string, 0, len(names))
	for _, name := range names {
		ds, ok := cfg.Datasource(name)
		if !ok {
			return nil, fmt.Errorf("unknown connection %q", name)
		}
		dsns = append(dsns, fmt.Sprintf("%s=%s;user=%s;password=%s", name, ds.DSN, ds.User, ds.Password))
	}
	return dsns, nil
}

// PlatformFor returns the generator platform matching a datasource adapter.
func PlatformFor(adapter string) string {
	switch adapter {
	case "postgres":
		return "PgsqlPlatform"
	case "sqlite":
		return "SqlitePlatform"
	default:
		return DefaultPlatform
	}
}

// DefaultPlatform is the generator's own default.
const DefaultPlatform = "MysqlPlatform"
