// Package build holds the vocabulary shared by every packaging stage: the
// failure kinds a build can end with and the states a build moves through.
package build
