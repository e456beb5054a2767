// Package workspace manages the on-disk tree the renderer works in.
//
// A [Workspace] owns a media directory. Renders write their script into a
// working directory below it: by default the same fixed directory and file on
// every call, so back-to-back calls overwrite each other's script. With
// [Config].Isolate each call gets a fresh directory named by a UUID instead.
//
// [Workspace.Remove] implements the cleanup tool. It deletes any directory the
// process can reach unless [Config].ConfineCleanup restricts it to the media
// tree, and reports through [CleanupResult] rather than an error.
package workspace
