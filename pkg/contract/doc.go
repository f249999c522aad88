// Package contract defines the contract model shared by the matching engine,
// the message selectors and the stub generators.
//
// A Contract is either an HTTP contract (Request + Response) or a messaging
// contract (Input and/or OutputMessage). Every example value inside a contract
// may differ between the two sides of the exchange:
//
//   - the stub (client) side: what a consumer stub sends or expects to receive
//   - the test (server) side: what a producer test sends or expects to receive
//
// Such values are modelled by Value. Bodies are plain Go structures
// (map[string]any, []any, scalars) that may embed Value, *Regex, FromFile and
// Execution nodes at any depth.
//
// Contracts are usually read from YAML files with ParseYAML, LoadFile or
// LoadDir. Documents are checked against a JSON schema before they are
// mapped onto the model.
package contract
