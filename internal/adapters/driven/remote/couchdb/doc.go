// Package couchdb implements the remote document store on CouchDB using
// kivik. Collection paths are flattened into document ids and recorded on
// each document so a collection can be queried with a Mango selector.
package couchdb
