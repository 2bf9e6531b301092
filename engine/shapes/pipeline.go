package shapes

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// buildProgram compiles every stage of src and links them. The first compile
// or link failure is logged and returned; nothing is leaked on failure.
func buildProgram(ctx *renderer.Context, src Sources) (*renderer.ShaderProgram, error) {
	stages := []metadata.ShaderStage{metadata.ShaderStageVertex}
	if src.Geometry != "" {
		stages = append(stages, metadata.ShaderStageGeometry)
	}
	stages = append(stages, metadata.ShaderStageFragment)

	compiled := make(map[metadata.ShaderStage]*renderer.Shader, len(stages))
	release := func() {
		for _, s := range compiled {
			s.Destroy()
		}
	}

	for _, stage := range stages {
		s, err := renderer.NewShaderFromSource(ctx, src.Stage(stage), stage)
		if err != nil {
			release()
			return nil, err
		}
		compiled[stage] = s
		if err := s.Compile(); err != nil {
			core.LogError("shader compilation failed: %s", err)
			release()
			return nil, err
		}
	}

	program, err := renderer.NewShaderProgram(ctx,
		compiled[metadata.ShaderStageVertex],
		compiled[metadata.ShaderStageFragment],
		compiled[metadata.ShaderStageGeometry])
	if err != nil {
		release()
		return nil, err
	}
	if err := program.Link(); err != nil {
		core.LogError("shader program link failed: %s", err)
		program.Destroy()
		return nil, err
	}
	// the sampler reads texture slot 0
	if err := program.SetUniformInt(uniformTexture, 0); err != nil {
		program.Destroy()
		return nil, err
	}
	return program, nil
}

// buildTexture uploads the shape texture and applies the sampling setup:
// slot 0, mip maps, repeat wrap and linear filters.
func buildTexture(ctx *renderer.Context, opts Options) (*renderer.Texture2D, error) {
	var (
		texture *renderer.Texture2D
		err     error
	)
	switch {
	case opts.Texture != "":
		if opts.Decoder == nil {
			return nil, &renderer.ResourceLoadError{Path: opts.Texture, Err: ErrNoDecoder}
		}
		texture, err = renderer.NewTexture2DFromFile(ctx, opts.Texture, opts.Decoder)
	case opts.Image != nil:
		texture, err = renderer.NewTexture2DFromImage(ctx, "", opts.Image)
	default:
		texture, err = renderer.NewTexture2DFromImage(ctx, defaultTextureName, defaultImage())
	}
	if err != nil {
		return nil, err
	}

	setup := []func() error{
		func() error { return texture.BindToSlot(0) },
		texture.GenerateMipMaps,
		func() error { return texture.SetProperty(metadata.TexturePropertyWrapS, metadata.TextureValueRepeat) },
		func() error { return texture.SetProperty(metadata.TexturePropertyWrapT, metadata.TextureValueRepeat) },
		func() error { return texture.SetProperty(metadata.TexturePropertyMinFilter, metadata.TextureValueLinear) },
		func() error { return texture.SetProperty(metadata.TexturePropertyMagFilter, metadata.TextureValueLinear) },
	}
	for _, step := range setup {
		if err := step(); err != nil {
			texture.Destroy()
			return nil, err
		}
	}
	return texture, nil
}

// defaultImage is a 2x2 white and grey checker used when no texture is given.
func defaultImage() *metadata.ImageResourceData {
	return &metadata.ImageResourceData{
		ChannelCount: 3,
		Width:        2,
		Height:       2,
		Pixels: []uint8{
			255, 255, 255, 160, 160, 160,
			160, 160, 160, 255, 255, 255,
		},
	}
}
