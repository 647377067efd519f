// Package engine runs pipelines of modules over documents.
//
// An Engine owns a PipelineCollection, the initial metadata shared by every
// pipeline and the collaborators handed to modules (file system, logger,
// metrics). Each call to Execute runs every pipeline once, in dependency then
// declaration order, and publishes each pipeline's output atomically so later
// pipelines can read it.
package engine
