// Package registry maintains the external-identifier to series-name
// mapping the pipeline needs to address the remote store.
//
// Column headers identify series by an external identifier, but the
// store's datapoint insertion endpoint addresses series by name. The
// registry bridges the two: it seeds itself from the store's listing at
// startup and auto-registers any identifier it has never seen, so a
// brand-new sensor column flows without operator intervention.
package registry
