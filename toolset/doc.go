// Package toolset defines tools as locally handled functions and groups them
// under a namespace.
//
// A [Set] holds [ToolDef]s and exposes them as toolfoundation [model.Tool]
// values, which carry the MCP tool shape the server advertises. Tools are
// addressed by bare name or by "namespace:name" ID.
//
// [NewAnimationSet] builds the two animation tools:
//
//   - execute_animation_code(code, quality = "medium_quality")
//   - cleanup_directory(directory)
//
// Both return report text. Missing or mistyped arguments are the only errors
// their handlers produce ([ErrInvalidArgument]).
//
// [Catalog] indexes a set with tooldiscovery so tools can be searched and
// their documentation looked up from the command line.
package toolset
