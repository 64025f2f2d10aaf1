// Package runtime contains the interfaces and small utilities shared by all
// other packages: the Monitor interface, the Environment, temporary storage,
// shutdown notification and the Debug helper.
package runtime

var debug = Debug("runtime")
