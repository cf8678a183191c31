// Package demo provides the application objects of the sample host:
// myobject and the home surface it hands out. SampleScript is the script
// the CLI runs with -sample.
package demo
