package assets

import "github.com/spaghettifunk/prism/engine/renderer/metadata"

// Loader reads one kind of asset from disk. params carries loader specific
// options, such as *metadata.ImageResourceParams for images.
type Loader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
