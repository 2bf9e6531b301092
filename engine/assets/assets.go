package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	ErrClosed         = errors.New("asset manager already closed")
	ErrUnknownAsset   = errors.New("asset not indexed")
	ErrNoLoader       = errors.New("no loader registered for asset type")
	ErrNotInitialized = errors.New("asset manager not initialized")
)

// changeBuffer bounds the number of pending change notifications. Slow
// consumers lose events rather than stall the watcher.
const changeBuffer = 64

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetEvent reports a created, modified or removed asset file.
type AssetEvent struct {
	Path    string
	Type    metadata.ResourceType
	Removed bool
}

type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan AssetEvent
	wg       sync.WaitGroup
}

func NewAssetManager() *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		changes: make(chan AssetEvent, changeBuffer),
		done:    make(chan struct{}),
	}

	// Register loaders
	am.RegisterLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.RegisterLoader(metadata.ResourceTypeText, &loaders.ShaderLoader{})
	am.RegisterLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{FlipY: true})
	return am
}

// Initialize indexes every recognised file under assetsDir. With watch set,
// the directory tree is also followed through fsnotify and changes are
// published on Changes.
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	if am.isClosed {
		return ErrClosed
	}
	info, err := os.Stat(assetsDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("asset path '%s' is not a directory", assetsDir)
	}
	am.root = assetsDir

	if watch {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		am.fsnotify = fsWatch
	}

	if err := am.watchRecursive(assetsDir); err != nil {
		return err
	}

	if am.fsnotify != nil {
		am.wg.Add(1)
		go am.start()
	}
	core.LogInfo("asset manager indexed %d files under '%s' (watch=%t)", am.Len(), assetsDir, watch)
	return nil
}

// RegisterLoader sets the loader for an asset type, replacing any previous one.
func (am *AssetManager) RegisterLoader(assetType metadata.ResourceType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// Root returns the indexed directory.
func (am *AssetManager) Root() string {
	return am.root
}

// Changes delivers asset events while the manager is watching. The channel is
// closed by Close.
func (am *AssetManager) Changes() <-chan AssetEvent {
	return am.changes
}

// LoadAsset loads an indexed asset by its path relative to the asset root.
func (am *AssetManager) LoadAsset(name string, params interface{}) (*metadata.Resource, error) {
	if am.root == "" {
		return nil, ErrNotInitialized
	}
	path := filepath.Join(am.root, filepath.FromSlash(name))

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if !exists {
		am.mutex.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, name)
	}
	// Update the loaded time
	asset.LastLoaded = time.Now()
	am.assets[path] = asset
	loader, loaderExists := am.loaders[asset.Type]
	am.mutex.Unlock()

	if !loaderExists {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, asset.Type)
	}
	return loader.Load(path, asset.Type, params)
}

// Load reads any file with the loader of the given type, indexed or not.
func (am *AssetManager) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	am.mutex.RLock()
	loader, ok := am.loaders[assetType]
	am.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, assetType)
	}
	return loader.Load(path, assetType, params)
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	am.mutex.RLock()
	loader, ok := am.loaders[asset.Type]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoLoader, asset.Type)
	}
	return loader.Unload(asset)
}

// Lookup returns the index entry for a path relative to the asset root.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Join(am.root, filepath.FromSlash(name))]
	return info, ok
}

// Assets lists the indexed assets of one type, sorted by path.
func (am *AssetManager) Assets(assetType metadata.ResourceType) []AssetInfo {
	am.mutex.RLock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		if a.Type == assetType {
			out = append(out, a)
		}
	}
	am.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Close stops the watcher goroutine and closes the change channel. Calling it
// more than once is harmless.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()

	var err error
	if am.fsnotify != nil {
		err = am.fsnotify.Close()
	}
	close(am.changes)
	return err
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("could not watch new directory '%s': %s", e.Name, err)
			}
		}
		return
	}

	// Handle create or modify events
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if assetType, ok := am.handleFileEvent(e.Name); ok {
			am.publish(AssetEvent{Path: am.relative(e.Name), Type: assetType})
		}
		return
	}

	// Can't stat a deleted entry, so treat a rename like a removal and let the
	// create on the other side index it again.
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		if assetType, ok := am.removeAsset(e.Name); ok {
			am.publish(AssetEvent{Path: am.relative(e.Name), Type: assetType, Removed: true})
		}
	}
}

func (am *AssetManager) publish(ev AssetEvent) {
	select {
	case am.changes <- ev:
	default:
		core.LogWarn("asset change queue full, dropping event for '%s'", ev.Path)
	}
}

func (am *AssetManager) relative(path string) string {
	rel, err := filepath.Rel(am.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// watchRecursive indexes every file under path and, when watching, adds each
// directory to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if am.fsnotify != nil {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (metadata.ResourceType, bool) {
	assetType, ok := determineAssetType(path)
	if !ok {
		return assetType, false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return assetType, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) (metadata.ResourceType, bool) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	a, ok := am.assets[path]
	delete(am.assets, path)
	return a.Type, ok
}

func determineAssetType(path string) (metadata.ResourceType, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := metadata.ShaderStageFromExtension(ext); ok {
		return metadata.ResourceTypeShader, true
	}
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage, true
	case ".txt", ".toml":
		return metadata.ResourceTypeText, true
	default:
		return metadata.ResourceTypeText, false
	}
}
