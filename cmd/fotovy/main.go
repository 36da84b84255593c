// fotovy serves and browses a local photo library
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/blobcache"
	"github.com/tstromberg/fotovy/pkg/config"
	"github.com/tstromberg/fotovy/pkg/library"
	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/paginate"
	"github.com/tstromberg/fotovy/pkg/query"
	"github.com/tstromberg/fotovy/pkg/server"
	"github.com/tstromberg/fotovy/pkg/timeline"
	"github.com/tstromberg/fotovy/pkg/viewer"
)

func main() {
	klog.InitFlags(nil)

	cfg, err := config.Load()
	if err != nil {
		klog.Exitf("config: %v\n%s", err, config.Usage())
	}

	inDirs := flag.String("in", strings.Join(cfg.Library.Dirs, ","), "Comma-separated photo directories")
	cacheDir := flag.String("cache", cfg.Cache.Dir, "Location of thumbnail cache directory")
	listen := flag.Bool("listen", false, "serve the page API via HTTP")
	addr := flag.String("addr", cfg.HTTP.Addr, "host:port to bind to in listen mode")
	watchFlag := flag.Bool("watch", cfg.Library.Watch, "watch for changes to the photo directories and rescan")
	browse := flag.Bool("browse", false, "browse the timeline in the terminal")
	pageSize := flag.Int("page-size", cfg.Gallery.PageSize, "items fetched per page")
	flag.Parse()

	cfg.Library.Dirs = nil
	for _, d := range strings.Split(*inDirs, ",") {
		if d = strings.TrimSpace(d); d != "" {
			cfg.Library.Dirs = append(cfg.Library.Dirs, d)
		}
	}
	cfg.Cache.Dir = *cacheDir
	cfg.HTTP.Addr = *addr
	cfg.Library.Watch = *watchFlag
	cfg.Gallery.PageSize = *pageSize

	if err := cfg.Validate(); err != nil {
		klog.Exitf("invalid configuration: %v", err)
	}
	if !*listen && !*browse {
		klog.Exitf("one of --listen or --browse is required")
	}

	if *browse {
		// the terminal belongs to the viewer
		klog.LogToStderr(false)
		klog.SetOutput(io.Discard)
	}

	md, err := library.NewExifMetadata()
	if err != nil {
		klog.Exitf("metadata: %v", err)
	}
	defer md.Close()

	lib := library.New(cfg.Library.Dirs, md)
	if _, err := lib.Scan(); err != nil {
		klog.Exitf("scan failed: %v", err)
	}

	var policy blobcache.Policy = blobcache.NewLRU(cfg.Cache.MaxEntries)
	if cfg.Cache.MaxAge > 0 {
		policy = blobcache.NewTTL(cfg.Cache.MaxAge)
	}
	blobs, err := blobcache.New(blobcache.Options{
		Dir:          cfg.Cache.Dir,
		Fetcher:      library.NewThumbnailer(lib),
		Policy:       policy,
		CacheSizeMax: cfg.Cache.MemoryMax,
	})
	if err != nil {
		klog.Exitf("blob cache: %v", err)
	}
	defer blobs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var p *tea.Program
	var wg sync.WaitGroup

	if *browse {
		m, err := viewer.New(ctx, viewer.Options{
			PageSize: cfg.Gallery.PageSize,
			Rows: func(_ context.Context, args paginate.Args) ([]timeline.Row, error) {
				limit, ok := args.Limit()
				if !ok {
					limit = -1
				}
				return lib.TimelinePage(args.Offset(), limit), nil
			},
			Media: func(onlyFavorites bool) query.Source[media.Item] {
				return func(_ context.Context, args paginate.Args) ([]media.Item, error) {
					limit, ok := args.Limit()
					if !ok {
						limit = -1
					}
					return lib.MediaPage(args.Offset(), limit, onlyFavorites), nil
				}
			},
			SetFavorite: lib.SetFavorite,
		})
		if err != nil {
			klog.Exitf("viewer: %v", err)
		}
		p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	}

	if cfg.Library.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lib.Watch(ctx, func(s *library.Snapshot) {
				klog.Infof("library changed: %d images", len(s.Images))
				if err := blobs.Purge(); err != nil {
					klog.Errorf("purge: %v", err)
				}
				if p != nil {
					p.Send(viewer.ReloadMsg{})
				}
			})
			if err != nil {
				klog.Errorf("watch failed: %v", err)
			}
		}()
	}

	if *listen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.New(lib, blobs, cfg.Gallery.PageSize).ListenAndServe(ctx, cfg.HTTP.Addr); err != nil {
				klog.Errorf("listen failed: %v", err)
				stop()
			}
		}()
	}

	if p != nil {
		if _, err := p.Run(); err != nil {
			klog.Errorf("viewer: %v", err)
		}
		stop()
	}

	wg.Wait()
}
