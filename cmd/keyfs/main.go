// Command keyfs is a small shell around a keyfs namespace: pick a
// backend, then run a single operation against a bucket's emulated
// directory tree.
//
//	keyfs -backend bolt -db ns.db mkdir /a/b/c
//	keyfs -backend bolt -db ns.db put /a/b/c/file1
//	keyfs -backend bolt -db ns.db ls /a/b
//	keyfs -backend bolt -db ns.db rm -r /a
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/keyfs/keyfs"
	"github.com/keyfs/keyfs/backend/nsbolt"
	"github.com/keyfs/keyfs/backend/nsmem"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		db          string
		backendKind string
		bucket      string
		fsOptimized bool
		recursive   bool
	)

	flag.StringVar(&db, "db", "keyfs.db", "Database path / name when using bolt backend")
	flag.StringVar(&backendKind, "backend", "", "Backend to use to store entries (memory, bolt)")
	flag.StringVar(&bucket, "bucket", "keyfs", "Bucket to operate on, created if missing")
	flag.BoolVar(&fsOptimized, "fso", false, "Mark the bucket filesystem-optimized on creation")
	flag.BoolVar(&recursive, "r", false, "Recursive rm")
	flag.Parse()

	var backend keyfs.Backend

	switch backendKind {
	case "":
		flag.PrintDefaults()
		fmt.Println()
		return fmt.Errorf("-backend is required")

	case "bolt":
		boltBackend, err := nsbolt.NewFile(db)
		if err != nil {
			return err
		}
		defer boltBackend.Close()
		backend = boltBackend
		log.Println("using bolt backend with file", db)

	case "mem", "memory":
		backend = nsmem.New()
		log.Println("using memory backend")

	default:
		return fmt.Errorf("unknown backend %q", backendKind)
	}

	ctx := context.Background()

	if err := backend.CreateBucket(ctx, bucket); err == nil {
		if fsOptimized {
			if err := backend.SetBucketMetadata(ctx, bucket, keyfs.FSOptimizedMetadata()); err != nil {
				return err
			}
		}
	} else if !keyfs.IsAlreadyExists(err) {
		return fmt.Errorf("keyfs: could not create bucket %q: %v", bucket, err)
	}

	ns := keyfs.New(backend)

	args := flag.Args()
	if len(args) < 1 {
		return fmt.Errorf("usage: keyfs [flags] <mkdir|put|ls|tree|stat|rm> [path]")
	}
	op := args[0]

	path := "/"
	if len(args) > 1 {
		path = args[1]
	}

	switch op {
	case "mkdir":
		return ns.MkdirAll(ctx, bucket, path)

	case "put":
		_, err := ns.Create(ctx, bucket, path, 0, nil)
		return err

	case "ls":
		entries, err := ns.List(ctx, bucket, path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			kind := "f"
			if entry.IsDir() {
				kind = "d"
			}
			fmt.Printf("%s %10d %s\n", kind, entry.Size, entry.Name())
		}
		return nil

	case "tree":
		return printTree(ctx, ns, bucket, path, "")

	case "stat":
		entry, err := ns.Stat(ctx, bucket, path)
		if err != nil {
			return err
		}
		fmt.Printf("key=%q dir=%v size=%d modified=%s\n",
			entry.Key, entry.IsDir(), entry.Size, entry.LastModified)
		return nil

	case "rm":
		if recursive {
			return ns.RemoveAll(ctx, bucket, path)
		}
		return ns.Remove(ctx, bucket, path)

	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}

func printTree(ctx context.Context, ns *keyfs.Namespace, bucket, path, indent string) error {
	entries, err := ns.List(ctx, bucket, path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("%s%s\n", indent, entry.Name())
		if entry.IsDir() {
			child := keyfs.AddTrailingSlash(path) + entry.Name()
			if err := printTree(ctx, ns, bucket, child, indent+"  "); err != nil {
				return err
			}
		}
	}
	return nil
}
