// Scratch tool for inspecting raw AST XML when a graph comes out wrong.
// Dumps the element tree with attributes so decoder/normalizer disagreements
// can be seen against the actual input.
package main

import (
	"fmt"
	"os"

	"github.com/verigraph/verigraph/internal/vast"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: verigraph-debug <ast.xml> [tag]")
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	doc, err := vast.Decode(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	root := doc.Netlist()
	if root == nil {
		fmt.Println("No netlist element found")
		os.Exit(1)
	}

	if len(os.Args) >= 3 {
		// Dump only the matching subtrees, like inspecting one statement kind.
		matches := root.Descendants(os.Args[2])
		if len(matches) == 0 {
			fmt.Printf("No %s elements found\n", os.Args[2])
			os.Exit(1)
		}
		for _, m := range matches {
			dump(m, 0)
		}
		return
	}

	dump(root, 0)
}

func dump(n *vast.Node, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	fmt.Printf("%s", n.Tag())
	if name := n.Name(); name != "" {
		fmt.Printf(" name=%q", name)
	}
	for _, a := range n.Attrs {
		if a.Name.Local == "name" || a.Name.Local == "loc" {
			continue
		}
		fmt.Printf(" %s=%q", a.Name.Local, a.Value)
	}
	if loc := n.Loc(); loc.Line > 0 {
		fmt.Printf(" (line %d)", loc.Line)
	}
	fmt.Println()
	for i := range n.Children {
		dump(&n.Children[i], depth+1)
	}
}
