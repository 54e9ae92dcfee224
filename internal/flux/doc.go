// Package flux implements the client state layer: a Dispatcher that
// broadcasts Actions, and a Store that owns the AppState, reduces actions into
// new snapshots and notifies subscribers.
//
// Data flows one way. Consumers call an Actions method, the Dispatcher hands
// the action to the Store, the Store commits a transition and its listeners
// re-render from the new snapshot. Backend calls (sign-in, posts, tasks) run
// on their own goroutines and report back by dispatching follow-up actions, so
// every state change, synchronous or not, goes through the same reducer.
package flux
