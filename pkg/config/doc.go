// Package config loads the contractd configuration file.
//
// Settings are resolved in this order, later sources winning:
//   - Default()
//   - contractd.yaml, contractd.yml or contractd.json (or an explicit path)
//   - CONTRACTD_* environment variables
//   - command line flags, applied by the CLI
//
// A minimal file:
//
//	contracts:
//	  dir: ./contracts
//	stubs:
//	  dir: ./build/stubs
//	matching:
//	  arrayMode: auto
//	mqtt:
//	  port: 1883
package config
