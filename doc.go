// Package cropyield averages crop yield observations per country, crop and
// year and builds the dashboard panels on top of the result.
//
// Usage:
//
//	import "github.com/spektr-org/cropyield/engine"
//
//	rows := engine.Aggregate(records, countries, crops, years)
//	chart := engine.BuildYieldTrendChart(engine.NewAggregatedView(rows))
//
// Loading is handled by the dataset package, the HTTP API by server and the
// command line by cmd/cropyield. The engine never touches the filesystem or
// the network.
package cropyield
