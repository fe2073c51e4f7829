// Package cmd wires cobra/viper into the sgmlreader CLI, grounded on
// go-i2p-newsgo/cmd/root.go's pattern of a single persistent Conf struct
// populated by viper.Unmarshal inside each command's Run.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/arturoeanton/sgmlreader/cmd/sgmlreader/internal/cliconfig"
)

var (
	cfgFile string
	c       *cliconfig.Config = &cliconfig.Config{}
)

var rootCmd = &cobra.Command{
	Use:   "sgmlreader [flags] input-uri [output-file]",
	Short: "Read loosely-structured SGML/HTML and emit well-formed XML",
	Long: `sgmlreader pulls a loosely-structured SGML or HTML document through a
DTD-guided reader and emits a well-formed XML token stream, repairing
common HTML malformations (omitted end tags, unquoted attributes,
unescaped entities) along the way.

input-uri may be a local path, a file:// or http(s):// URL, or a glob
such as "docs/*.html" (each match is converted independently). When
omitted, input is read from stdin. output-file defaults to stdout, or
to a destination directory when input-uri expands to more than one
file.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.Unmarshal(c)
		if len(args) > 0 {
			c.InputURI = args[0]
		}
		if len(args) > 1 {
			c.OutputFile = args[1]
		}
		return runConvert(cmd, c)
	},
}

// Execute runs the command tree against os.Args. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ExecuteWithArgs runs the command tree against an explicit argument list,
// for use in tests that shouldn't depend on os.Args. Unlike a normal process
// invocation, a test binary calls this repeatedly against the same
// rootCmd, so flags are reset to their defaults first; otherwise a flag set
// by one test case would leak into the next.
func ExecuteWithArgs(args []string) error {
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	c = &cliconfig.Config{}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// LookupFlag looks up a persistent root flag by name. Returns nil if not
// found.
func LookupFlag(flagName string) *pflag.Flag {
	return rootCmd.PersistentFlags().Lookup(flagName)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sgmlreader.yaml)")

	flags := rootCmd.Flags()
	flags.String("e", "", `where recoverable warnings go: "" or "$STDERR" for stderr, "log" to append to --errorlogfile`)
	flags.String("errorlogfile", "sgmlreader.log", `log file path used when -e log is set`)
	flags.Bool("f", false, "pretty-print output and suppress insignificant whitespace")
	flags.Bool("html", false, "load the embedded default HTML DTD")
	flags.String("dtd", "", "URL of an external DTD to use for this document")
	flags.Bool("noxml", false, `suppress the leading "<?xml?>" declaration on output`)
	flags.Bool("doctype", false, "keep the DOCTYPE declaration in the output instead of stripping it")
	flags.Bool("lower", false, "fold element/attribute names to lower case")
	flags.Bool("upper", false, "fold element/attribute names to upper case")
	flags.String("proxy", "", `HTTP proxy "server:port" for external fetches`)
	flags.String("encoding", "", "override the input's detected character encoding")
	flags.String("format", "xml", "output format: xml, json, csv, query, or c14n")
	flags.String("query", "", `sgml/xtree path expression, used when --format=query or --format=csv (e.g. "book[price>10]/title")`)

	viper.BindPFlags(flags)
}

// initConfig reads a config file and SGMLREADER_* environment variables,
// mirroring go-i2p-newsgo/cmd/root.go's initConfig.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sgmlreader")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("sgmlreader")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
