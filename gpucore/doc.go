// Package gpucore defines the backend-neutral GPU resource model the
// texture cache is written against.
//
// The cache never talks to a graphics API directly. Every GPU operation it
// needs (creating the shared atlas array texture, uploading a slot, copying
// layers forward during growth, maintaining the palette lookup texture) goes
// through the [Backend] interface. Resources are referred to by opaque
// [TextureID] handles; each backend keeps the mapping between IDs and its
// own objects.
//
// # Backends
//
//	               +-------------------+
//	               |      texcache     |
//	               |  (TextureCache)   |
//	               +---------+---------+
//	                         |  gpucore.Backend
//	        +----------------+----------------+
//	        |                |                |
//	+-------v------+ +-------v------+ +-------v------+
//	|    memory    | |    native    | |      gl      |
//	| (CPU slices) | | (wgpu HAL)   | | (OpenGL 4.1) |
//	+--------------+ +--------------+ +--------------+
//
// The memory backend keeps pixels in Go slices and is what tests and the
// atlasdump tool use. The native and gl backends drive real devices.
//
// # Resource Management
//
// IDs become invalid after [Backend.DestroyTexture]. Destroying a texture
// that is still bound by a renderer is undefined behaviour; the cache only
// releases the old array texture after the grown copy has replaced it.
package gpucore
