// Package autotag suggests keywords for library images using a generative model.
package autotag

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/library"
	"github.com/tstromberg/fotovy/pkg/media"
)

// MaxTags is the number of tags kept per image.
const MaxTags = 5

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

var prompt = "generate 1-5 comma-separated one-word tags. Here are some example tags: " +
	"bw for black and white photos, family for family photos, friends for friend photos, " +
	"landscape for landscape photos, motorcycle for motorcycle photos, nature for nature photos, " +
	"bird for bird photos, beach for beach photos, cycling for bicycling photos. " +
	"The tag animal should be included for photos of an animal that is unlikely to be a pet. " +
	"Tags should be a present-tense singular word that a professional photographer would want to " +
	"organize their photo albums with. Do not combine multiple words. Use urban for city photos. " +
	"If you know the location of a photo, add the name of the place, city, or country as a tag. " +
	"do not use plural words."

// Tagger suggests tags for a JPEG image.
type Tagger interface {
	Tags(ctx context.Context, jpeg []byte) ([]string, error)
}

// Gemini is a Tagger backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini returns a Gemini tagger authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Tags(ctx context.Context, jpeg []byte) ([]string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(jpeg, "image/jpeg"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return ParseTags(resp.Text()), nil
}

// ParseTags turns a comma-separated model answer into at most MaxTags distinct
// single-word lowercase tags.
func ParseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || strings.ContainsAny(t, " \t\n") || slices.Contains(tags, t) {
			continue
		}
		tags = append(tags, t)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

// Library is the part of library.Library that Run uses.
type Library interface {
	Snapshot() *library.Snapshot
	SetKeywords(id string, keywords []string) (media.Item, error)
}

// Thumbs returns thumbnail bytes by cache key.
type Thumbs interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Options control Run.
type Options struct {
	// Overwrite retags images that already have keywords.
	Overwrite bool
	DryRun    bool
	// Size is the thumbnail size sent to the tagger.
	Size string
}

// Run tags the photos of lib and returns how many were tagged. Videos are skipped.
// Failures on single images are logged and do not stop the run.
func Run(ctx context.Context, lib Library, thumbs Thumbs, t Tagger, opts Options) (int, error) {
	if opts.Size == "" {
		opts.Size = library.ThumbAlbum
	}

	tagged := 0
	for _, i := range lib.Snapshot().Images {
		if err := ctx.Err(); err != nil {
			return tagged, err
		}
		if i.Video {
			continue
		}
		if !opts.Overwrite && len(i.Keywords) > 0 {
			klog.V(1).Infof("%s has tags: %v", i.RelPath, i.Keywords)
			continue
		}

		id := i.ID()
		bs, err := thumbs.Fetch(ctx, library.ThumbKey(opts.Size, id))
		if err != nil {
			klog.Errorf("thumbnail %s: %v", id, err)
			continue
		}

		tags, err := t.Tags(ctx, bs)
		if err != nil {
			klog.Errorf("tag %s: %v", id, err)
			continue
		}

		klog.Infof("adding tags to %s: %v", id, tags)
		if opts.DryRun {
			tagged++
			continue
		}
		if _, err := lib.SetKeywords(id, tags); err != nil {
			klog.Errorf("write %s: %v", id, err)
			continue
		}
		tagged++
	}
	return tagged, nil
}
