// Package services contains the application services behind the HTTP
// transport. DataService owns the page collection, the population
// reference, and the current view selection, and answers every data
// query through the pure transform pipeline.
package services
