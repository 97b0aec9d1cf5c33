// Package intake turns raw change records into conflict.ChangeEvent values.
//
// Records arrive as JSON: a single object, an array of objects, or one
// object per line. [Parse] decodes them and attaches the tenant, module,
// entity and operation metadata the detector needs. [Watcher] feeds files
// dropped into an inbox directory through a handler, moving each file to
// processed/ or failed/ afterwards.
package intake
