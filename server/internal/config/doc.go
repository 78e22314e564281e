// Package config loads the server-side configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort            port for the REST API and WebSocket hub (default 8080)
//   - Auth.Mode           "apikey" or "none"
//   - Auth.KeyEnv         environment variable holding the expected API key
//   - Auth.Header         HTTP header name (default "x-api-key")
//   - Registry.Driver     memory | sqlite | postgres (default memory)
//   - Registry.Path       SQLite file (default synthetics-rules.db)
//   - Registry.DSNEnv     environment variable holding the Postgres DSN
//   - Connectors.Source   static | http (default static)
//   - Connectors.Static   connectors served by the static source
//   - Settings.Path       dynamic settings YAML file (default settings.yaml)
//   - Settings.Watch      refresh default rules when the file changes
//   - Events.NATSURLEnv   environment variable holding the NATS URL
//   - BroadcastInterval   WebSocket push period (default 5s)
//   - SetupOnStart        provision default rules on start (default true)
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
