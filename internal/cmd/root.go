package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "climatetex",
	Short: "A climate-aware texture resolver",
	Long: `climatetex decodes palette-indexed texture archives into RGBA textures.

It substitutes climate- and weather-specific archives, applies image
processing (power-of-two resizing, dilation, mip chains, normal maps) and
exports or serves the results.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("source-dir", "", "Directory containing TEXTURE.NNN archives (empty uses the synthetic source)")
	rootCmd.PersistentFlags().Int64("seed", 1337, "Seed for the synthetic source")
	rootCmd.PersistentFlags().String("palette", "ART_PAL.COL", "Palette file textures are decoded with")
	rootCmd.PersistentFlags().Bool("night", false, "Use night window colors")
	rootCmd.PersistentFlags().String("emissive", "", "Comma-separated palette indices that glow under extended-alpha")
	rootCmd.PersistentFlags().Float64("bump", 0.1, "Normal map strength")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"source.dir", "source-dir"},
		{"source.seed", "seed"},
		{"source.palette", "palette"},
		{"decode.night", "night"},
		{"decode.emissive", "emissive"},
		{"decode.bump", "bump"},
		{"verbose", "verbose"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, rootCmd.PersistentFlags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("CLIMATETEX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
