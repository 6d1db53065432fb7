// Command xcinfo lists the contents of correlation archive files.
//
// Usage:
//
//	xcinfo [flags] file.nxc [file.nxc ...]
//
// Without flags it prints one line per record with the pair addressing,
// row counts and lag geometry.
//
// Examples:
//
//	xcinfo pairs.nxc
//	xcinfo -tags pairs.nxc
//	xcinfo -tag XX.SRC1_YY.RCV1 pairs.nxc
//	xcinfo -misc stack.nxc
package main

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/noisexc/noisexc/archive"
)

func main() {
	tagsOnly := flag.Bool("tags", false, "list record tags only")
	tag := flag.String("tag", "", "restrict output to one tag (pair or stack name)")
	misc := flag.Bool("misc", false, "append misc metadata to each record line")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: xcinfo [flags] file.nxc [file.nxc ...]\n\n")
		fmt.Fprintf(os.Stderr, "Lists the records stored in correlation archive files.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  xcinfo pairs.nxc\n")
		fmt.Fprintf(os.Stderr, "  xcinfo -tags pairs.nxc\n")
		fmt.Fprintf(os.Stderr, "  xcinfo -tag XX.SRC1_YY.RCV1 pairs.nxc\n")
	}
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	exit := 0
	for _, name := range files {
		if len(files) > 1 {
			fmt.Printf("%s:\n", name)
		}
		if err := inspect(name, *tag, *tagsOnly, *misc); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", name, err)
			exit = 1
		}
	}
	os.Exit(exit)
}

func inspect(name, tag string, tagsOnly, misc bool) error {
	f, err := archive.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if tagsOnly {
		for _, t := range f.Tags() {
			fmt.Println(t)
		}
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "Tag\tPath\tComp\tRows\tNgood\tDt [s]\tLag [s]\tDist [km]\tFirst Window\n"
	if misc {
		header = strings.TrimSuffix(header, "\n") + "\tMisc\n"
	}
	if _, err := fmt.Fprint(tw, header); err != nil {
		return fmt.Errorf("writing output header: %w", err)
	}

	matched := 0
	for _, rec := range f.Records() {
		if tag != "" && rec.Tag != tag {
			continue
		}
		matched++

		c, err := f.Read(rec.Tag, rec.Path)
		if err != nil {
			return err
		}

		var ngood int64
		for _, g := range c.Ngood {
			ngood += g
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%d\t%d\t%g\t%g\t%.2f\t%s",
			rec.Tag, rec.Path, c.Comp, c.NumRows(), ngood,
			c.Dt, c.MaxLag, c.Dist,
			c.TimeAt(0).Format("2006-01-02 15:04:05"))
		if misc {
			line += "\t" + miscSummary(c.Misc)
		}
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return fmt.Errorf("writing output row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}

	if tag != "" && matched == 0 {
		return fmt.Errorf("no records with tag %q", tag)
	}
	return nil
}

func miscSummary(m map[string]string) string {
	if len(m) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, " ")
}
