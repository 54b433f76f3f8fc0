package cmd

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/beetlebugorg/nitf/pkg/nitf"
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE...",
	Short: "Print the TREs in each file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, err := newParser()
		if err != nil {
			return err
		}
		blocks, failed := loadBlocks(parser, args)

		format := viper.GetString("format")
		out := cmd.OutOrStdout()
		for _, b := range blocks {
			switch format {
			case "yaml":
				err = writeYAML(out, b)
			case "text", "":
				err = writeText(out, b)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringP("format", "f", "text", "output format: text or yaml")
	viper.BindPFlag("format", dumpCmd.Flags().Lookup("format"))
	RootCmd.AddCommand(dumpCmd)
}

func writeText(w io.Writer, b *nitf.Block) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", b.Path)
	for _, ext := range b.Extensions {
		switch ext := ext.(type) {
		case *nitf.Tree:
			fmt.Fprintf(&sb, "  %s (%d bytes)\n", ext.Tag(), ext.Length())
			textValues(&sb, &ext.Values, "    ")
		case *nitf.Unknown:
			fmt.Fprintf(&sb, "  %s (%d bytes, no schema)\n", ext.Tag(), ext.Length())
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func textValues(sb *strings.Builder, v *nitf.Values, indent string) {
	for _, e := range v.Entries() {
		switch e := e.(type) {
		case *nitf.Scalar:
			fmt.Fprintf(sb, "%s%s = %s\n", indent, e.Name(), scalarText(e))
		case *nitf.Group:
			fmt.Fprintf(sb, "%s%s: %d\n", indent, e.Name(), e.Len())
			for i, rep := range e.Repetitions() {
				fmt.Fprintf(sb, "%s  [%d]\n", indent, i)
				textValues(sb, rep, indent+"    ")
			}
		}
	}
}

func scalarText(s *nitf.Scalar) string {
	if s.Kind() == nitf.KindBinary {
		return fmt.Sprintf("<%d bytes>", len(s.Bytes()))
	}
	return strconv.Quote(s.Text())
}

// writeYAML emits one document per block. Mapping nodes keep the field order
// of the record.
func writeYAML(w io.Writer, b *nitf.Block) error {
	exts := &yaml.Node{Kind: yaml.SequenceNode}
	for _, ext := range b.Extensions {
		m := mapping()
		addPair(m, "tag", str(ext.Tag()))
		addPair(m, "length", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(ext.Length())})
		switch ext := ext.(type) {
		case *nitf.Tree:
			addPair(m, "fields", yamlValues(&ext.Values))
		case *nitf.Unknown:
			addPair(m, "raw", binary(ext.Data()))
		}
		exts.Content = append(exts.Content, m)
	}

	doc := mapping()
	addPair(doc, "path", str(b.Path))
	addPair(doc, "extensions", exts)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func yamlValues(v *nitf.Values) *yaml.Node {
	m := mapping()
	for _, e := range v.Entries() {
		switch e := e.(type) {
		case *nitf.Scalar:
			if e.Kind() == nitf.KindBinary {
				addPair(m, e.Name(), binary(e.Bytes()))
				continue
			}
			addPair(m, e.Name(), str(e.Text()))
		case *nitf.Group:
			seq := &yaml.Node{Kind: yaml.SequenceNode}
			for _, rep := range e.Repetitions() {
				seq.Content = append(seq.Content, yamlValues(rep))
			}
			addPair(m, e.Name(), seq)
		}
	}
	return m
}

func mapping() *yaml.Node { return &yaml.Node{Kind: yaml.MappingNode} }

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func binary(b []byte) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(b)}
}

func addPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, str(key), value)
}
