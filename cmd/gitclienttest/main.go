package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dnswlt/dirsearch/internal/gitclient"
	"github.com/dnswlt/dirsearch/internal/pom"
)

func main() {
	var (
		url      string
		username string
		password string
		ref      string
		path     string
	)

	flag.StringVar(&url, "url", "", "Repository URL to read from")
	flag.StringVar(&username, "user", "", "Username for authentication")
	flag.StringVar(&password, "pass", "", "Password or Token for authentication")
	flag.StringVar(&ref, "ref", "", "Reference (branch or tag) to read the pom from. Defaults to the default branch.")
	flag.StringVar(&path, "pom", "pom.xml", "Path of the pom in the repository")
	flag.Parse()

	if url == "" {
		fmt.Println("Error: -url is required")
		flag.Usage()
		os.Exit(1)
	}

	var auth *gitclient.Auth
	if username != "" || password != "" {
		auth = &gitclient.Auth{
			Username: username,
			Password: password,
		}
	}

	client, err := gitclient.New(url, auth)
	if err != nil {
		log.Fatalf("Failed to clone %q: %v", url, err)
	}

	// List branches and tags
	refs, err := client.ListReferences()
	if err != nil {
		log.Fatalf("Failed to list references: %v", err)
	}
	if len(refs) == 0 {
		log.Fatalf("No branches or tags found in %q", url)
	}

	fmt.Printf("Branches and tags in %s:\n", url)
	for _, v := range refs {
		fmt.Printf("  %s\n", v)
	}

	if ref == "" {
		ref, err = client.DefaultBranch()
		if err != nil {
			log.Fatalf("No -ref specified and no default branch found: %v", err)
		}
	}
	data, err := client.ReadFile(ref, path)
	if err != nil {
		log.Fatalf("Failed to read %s at %s: %v", path, ref, err)
	}
	model, err := pom.Parse(data, pom.DependenciesLocator)
	if err != nil {
		log.Fatalf("Failed to parse %s at %s: %v", path, ref, err)
	}

	fmt.Printf("\nDependencies in %s at %s (encoding %q):\n", path, ref, model.Encoding)
	for i := range model.Dependencies {
		fmt.Printf("  %s\n", &model.Dependencies[i])
	}
}
