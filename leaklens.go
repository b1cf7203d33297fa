// ABOUTME: Main leaklens package providing version information and package documentation
// ABOUTME: This is the root package for the JavaScript heap leak detection tool

// Package leaklens finds probable memory leaks in garbage-collected heaps.
// It parses V8-style heap snapshots into an object graph and classifies
// objects as leaked when every retaining path goes through configured
// "unintentional retainer" data structures instead of a genuine root.
package leaklens

// Version is the semantic version of the leaklens tool
const Version = "0.1.0-dev"
