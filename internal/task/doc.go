// Package task defines the message-processing attempt entity (Task), the
// error taxonomy used for retry classification, and the context binding that
// lets collaborators observe the task of their own retry chain.
package task
