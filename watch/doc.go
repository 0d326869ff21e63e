// Package watch ingests documents dropped into a directory.
//
// A Watcher subscribes to file system notifications for one directory,
// collects created and modified files until the directory has been quiet for
// the debounce period and then hands the batch to an Ingester.
package watch
