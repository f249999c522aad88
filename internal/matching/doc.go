// Package matching decides whether a concrete message or exchange satisfies
// one side of a contract.
//
// A match runs in three steps:
//
//   - Header match: every declared header must be present and either fully
//     match its pattern or equal its literal value. The first mismatch stops
//     the header step.
//   - Content-type resolution: declared headers, candidate headers and finally
//     the shape of the contract body classify the payload as JSON, XML, text
//     or binary.
//   - Body match: JSON bodies are verified through generated JSONPath
//     assertions (see internal/jsonpaths), XML bodies through XPath assertions,
//     file references by byte or string equality, whole-body patterns by a
//     single regular expression and anything else by plain equality.
//
// Mismatches are not errors. They are collected in a Result that carries one
// FieldResult per failed header or path. Errors are reserved for broken
// contracts, such as a body file that cannot be read.
//
// Key types:
//
//   - Engine: stateless matcher configured with array and null policies
//   - Expectation: the contract side being verified
//   - Candidate: the headers and payload under test
//   - Result: the outcome with per-field diagnostics
//   - Commands: expr based evaluator for by_command assertions
package matching
