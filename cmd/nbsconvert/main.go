// Package main is the entry point for the nbsconvert CLI
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/james-see/nbsconvert/pkg/converter"
	"github.com/james-see/nbsconvert/pkg/converter/midiimport"
	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/pitch"
	"github.com/james-see/nbsconvert/pkg/song"
	"github.com/james-see/nbsconvert/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile string
	targetFmt  formatValue
	configPath string
	dumpFormat string
	noteTick   int
	noteLayer  int

	policyFlag   = policyValue(pitch.None)
	unmappedFlag = unmappedValue(midiimport.UnmappedReport)

	log  = logrus.New()
	opts converter.Options
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nbsconvert",
	Short: "Convert between note block song formats",
	Long: `nbsconvert converts songs between Note Block Studio (.nbs), the macro
tick-delta stream (.macro), the text note list (.txt) and MIDI (.mid).

Notes outside the playable range can be corrected with --policy:
clamp, transpose or shift (move to a higher or lower instrument).

Examples:
  nbsconvert convert song.mid -o song.nbs
  nbsconvert convert song.nbs --to text --policy transpose
  nbsconvert info song.nbs
  nbsconvert dump song.txt --format json
  nbsconvert tui`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long: `Automatically detects the input format and converts to the output format
given by --to or by the extension of --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Show song metadata and statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var notesCmd = &cobra.Command{
	Use:   "notes <input>",
	Short: "List the notes of a song",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotes,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <input>",
	Short: "Dump the decoded song as YAML, JSON or a Go value dump",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported formats and conversions",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.VarP(&policyFlag, "policy", "p", "Pitch correction policy (none, clamp, transpose, shift)")
	pf.String("log-level", logrus.InfoLevel.String(), "Log level (debug, info, warn, error)")
	pf.Float64("tps", midiimport.DefaultTicksPerSecond, "Ticks per second for MIDI imports")
	pf.Var(&unmappedFlag, "unmapped", "Unmapped MIDI notes: skip, report or fail")
	pf.Bool("full-range", false, "Keep MIDI notes in the full 88-key range instead of the playable range")
	pf.Int("nbs-version", converter.DefaultNBSVersion, "NBS version written for songs converted to NBS")

	// Convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path")
	convertCmd.Flags().VarP(&targetFmt, "to", "t", "Output format when --output is not given (nbs, text, macro, midi)")

	// Notes command
	notesCmd.Flags().IntVar(&noteTick, "tick", -1, "Only list notes at this tick")
	notesCmd.Flags().IntVar(&noteLayer, "layer", -1, "Only list notes on this layer")

	// Dump command
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "yaml", "Dump format (yaml, json, spew)")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(tuiCmd)
}

// setup merges the config file and flags into opts and configures logging.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.applyFlags(cmd.Flags())

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	opts, err = cfg.options(log)
	return err
}

func newConverter() *converter.Converter {
	return converter.New(opts)
}

func getOutputPath(input string, target song.Format) string {
	if outputFile != "" {
		return outputFile
	}
	return converter.OutputPath(input, target)
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]

	target := song.Format(targetFmt)
	if outputFile != "" {
		target = converter.DetectFormat(outputFile)
	}
	if target == "" || target == song.FormatUnknown {
		return fmt.Errorf("cannot determine output format: use --output with a known extension or --to")
	}
	output := getOutputPath(input, target)

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	fmt.Printf("Converting %s -> %s\n", input, output)
	res, err := newConverter().Convert(input, data, target)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, res.Data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	if res.MIDI != nil && res.MIDI.Dropped() > 0 {
		fmt.Printf("Dropped %d unmapped MIDI notes\n", res.MIDI.Dropped())
	}
	fmt.Printf("Conversion complete! %d notes written\n", res.Song.NoteCount())
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := newConverter().DecodeFile(args[0])
	if err != nil {
		return err
	}
	h := s.Header

	label := lipgloss.NewStyle().Bold(true).Width(18)
	row := func(k string, v any) {
		fmt.Println(label.Render(k) + fmt.Sprint(v))
	}

	row("Format", s.Format)
	row("Title", s.Title())
	if s.Format.Layered() {
		row("Author", h.Author)
		row("Original author", h.OriginalAuthor)
		row("Description", h.Description)
		row("Version", h.Version)
		row("Instruments", fmt.Sprintf("%d vanilla, %d custom", h.VanillaInstruments, len(s.CustomInstruments)))
		row("Layers", len(s.Layers))
		row("Time signature", fmt.Sprintf("%d/4", h.TimeSignature))
		if h.Loop {
			row("Loop", fmt.Sprintf("from tick %d, max %d", h.LoopStart, h.MaxLoopCount))
		}
	}
	row("Speed", fmt.Sprintf("%.2f ticks/s", s.Speed()))
	row("Length", fmt.Sprintf("%d ticks (%s)", s.Length(), s.Duration().Round(100_000_000)))
	row("Notes", s.NoteCount())

	outside := 0
	playable := s.Format.PlayableRange()
	for _, n := range s.Notes() {
		if !playable.Contains(n.Key) {
			outside++
		}
	}
	row("Out of range", outside)

	events := 0
	for range s.Events() {
		events++
	}
	if events > 0 {
		row("Events", events)
	}
	return nil
}

func runNotes(cmd *cobra.Command, args []string) error {
	s, err := newConverter().DecodeFile(args[0])
	if err != nil {
		return err
	}

	if p := opts.Policy; p != pitch.None {
		log.WithField("notes", pitch.Apply(s, p)).Infof("applied %s policy", p)
	}

	playable := s.Format.PlayableRange()
	var rows [][]string
	var outside []int
	for tick, n := range s.Notes() {
		if (noteTick >= 0 && tick != noteTick) || (noteLayer >= 0 && n.Layer != noteLayer) {
			continue
		}
		layer := "-"
		if n.Layer >= 0 {
			layer = strconv.Itoa(n.Layer)
		}
		if !playable.Contains(n.Key) {
			outside = append(outside, len(rows))
		}
		rows = append(rows, []string{
			strconv.Itoa(tick), layer, instrumentName(s, n.Instrument), strconv.Itoa(n.Key), strconv.Itoa(n.Velocity),
		})
	}

	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3B30"))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TICK", "LAYER", "INSTRUMENT", "KEY", "VEL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			for _, r := range outside {
				if r == row && col == 3 {
					return warn.Padding(0, 1)
				}
			}
			return style
		})
	fmt.Println(t)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	s, err := newConverter().DecodeFile(args[0])
	if err != nil {
		return err
	}
	return writeDump(os.Stdout, s, dumpFormat)
}

func runFormats(cmd *cobra.Command, args []string) error {
	fmt.Println("Formats:")
	for _, f := range converter.SupportedFormats() {
		fmt.Printf("  %-6s %s\n", f, converter.Extension(f))
	}
	fmt.Println("Conversions:")
	for _, c := range converter.GetSupportedConversions() {
		fmt.Printf("  %s\n", c)
	}
	fmt.Println("Pitch policies:")
	for _, p := range pitch.Policies() {
		fmt.Printf("  %s\n", p)
	}
	fmt.Println("Key ranges (NBS keys):")
	for _, r := range []struct {
		name string
		keys instrument.KeyRange
	}{
		{"full", instrument.Full},
		{"playable", instrument.Playable},
	} {
		fmt.Printf("  %-9s %v, %d semitones\n", r.name, r.keys, r.keys.Width())
	}
	fmt.Println("Instruments:")
	fmt.Println(instrumentTable())
	return nil
}

// instrumentTable lists the vanilla instruments with their ids in both
// palettes.
func instrumentTable() *table.Table {
	var rows [][]string
	for _, d := range instrument.Definitions() {
		rows = append(rows, []string{
			strconv.Itoa(instrument.PaletteNBS.ID(d.Instrument)),
			strconv.Itoa(instrument.PaletteGame.ID(d.Instrument)),
			d.Name,
			d.GameName,
			fmt.Sprintf("%+d", d.Octave),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NBS", "GAME", "NAME", "SOUND", "OCTAVE").
		Rows(rows...)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(opts)
}

// instrumentName names a note's instrument, resolving NBS custom instruments.
func instrumentName(s *song.Song, id int) string {
	if inst, ok := s.Format.Palette().Lookup(id); ok {
		return inst.String()
	}
	if s.Format.Layered() {
		if i := id - s.Header.VanillaInstruments; i >= 0 && i < len(s.CustomInstruments) {
			return s.CustomInstruments[i].Name
		}
	}
	return fmt.Sprintf("#%d", id)
}
