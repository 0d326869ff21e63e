// Package query answers natural-language questions over an indexed collection.
//
// A query is embedded, matched against the vector store and, when a language
// model is configured, turned into a grounded prompt whose answer cites the
// retrieved sources. Synthesis failures never fail a query: the response is
// marked degraded and still carries its sources.
package query
