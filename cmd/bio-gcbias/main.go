// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-gcbias estimates the GC bias of a sequencing run: it samples the
genome at a fixed stride, tabulates expected versus observed read
counts per GC-content bin and fragment length, and writes a table of
per-(length, GC) correction ratios.
*/

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/gcbias/alignment"
	"github.com/grailbio/gcbias/encoding/fasta"
	"github.com/grailbio/gcbias/gcbias"
	"github.com/grailbio/gcbias/interval"
	"github.com/grailbio/hts/sam"
)

var (
	freqPath       = flag.String("freq", "", "Output path for the GC bias frequency table (required)")
	measuredPath   = flag.String("measurement-output", "", "Optional output path for the raw measured counts; only meaningful with -interpolate")
	bamIndexPath   = flag.String("index", "", "Input BAM index path. Defaults to bampath + .bai")
	fastaIndexPath = flag.String("fasta-index", "", "FASTA index (fai) path. Defaults to fapath + .fai; without one the whole reference is read into memory")
	genomeSize     = flag.Int64("effective-genome-size", 0, "Mappable genome size, e.g. 2913022398 for GRCh38 (required)")
	sampleSize     = flag.Int64("sample-size", gcbias.DefaultOpts.SampleSize, "Number of genome positions to sample")
	minLength      = flag.Int("min-length", gcbias.DefaultOpts.MinLength, "Smallest fragment length to profile")
	maxLength      = flag.Int("max-length", gcbias.DefaultOpts.MaxLength, "Largest fragment length to profile")
	lengthStep     = flag.Int("length-step", gcbias.DefaultOpts.LengthStep, "Fragment length spacing when interpolating")
	interpolate    = flag.Bool("interpolate", false, "Sample fragment lengths sparsely and interpolate the bias surface over the rest")
	surfaceSmooth  = flag.Int("surface-smooth", gcbias.DefaultOpts.SurfaceSmooth, "Smoothing passes applied to the sampled grid before interpolation")
	excludePath    = flag.String("exclude", "", "BED file of regions to exclude from sampling (assembly gaps, blacklists)")
	extraPath      = flag.String("extra-sampling", "", "BED file of regions to sample at full extra density")
	region         = flag.String("region", "", "Restrict the run to one region. Format as <contig>:<1-based first pos>-<last pos>, <contig>:<1-based pos>, or just <contig>")
	parallelism    = flag.Int("parallelism", 0, "Maximum number of simultaneous tabulation workers; 0 = GOMAXPROCS")
	seed           = flag.Int64("seed", gcbias.DefaultOpts.Seed, "Random seed for stochastic GC rounding; fixed seed means reproducible output")
	maxReadsFactor = flag.Float64("max-reads-factor", gcbias.DefaultOpts.MaxReadsFactor, "Multiple of the expected depth at which a position counts as a coverage peak and is discarded")
	minReadsFactor = flag.Float64("min-reads-factor", gcbias.DefaultOpts.MinReadsFactor, "Multiple of the expected depth for the lower Poisson bound")
)

func bioGCBiasUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath fapath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioGCBiasUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		log.Fatalf("Expected exactly two positional arguments (bampath and fapath), got '%s'; please check flag syntax",
			strings.Join(flag.Args(), " "))
	}
	bamPath, faPath := flag.Arg(0), flag.Arg(1)
	if *freqPath == "" {
		log.Fatalf("-freq is required")
	}
	if *genomeSize <= 0 {
		log.Fatalf("-effective-genome-size is required")
	}
	indexPath := *bamIndexPath
	if indexPath == "" {
		indexPath = bamPath + ".bai"
	}
	faiPath := *fastaIndexPath
	if faiPath == "" {
		faiPath = faPath + ".fai"
	}

	reg, err := parseRegion(*region)
	if err != nil {
		log.Fatalf("parsing -region: %v", err)
	}

	mapped, refs, err := alignment.MappedReadCount(bamPath, indexPath)
	if err != nil {
		log.Fatalf("reading %s: %v", bamPath, err)
	}
	if mapped == 0 {
		log.Fatalf("%s contains no mapped reads", bamPath)
	}
	log.Printf("%s: %d mapped reads across %d references", bamPath, mapped, len(refs))

	opts := gcbias.DefaultOpts
	opts.MinLength = *minLength
	opts.MaxLength = *maxLength
	opts.LengthStep = *lengthStep
	opts.Interpolate = *interpolate
	opts.SampleSize = *sampleSize
	opts.EffectiveGenomeSize = *genomeSize
	opts.TotalMappedReads = int64(mapped)
	opts.Parallelism = *parallelism
	opts.MaxReadsFactor = *maxReadsFactor
	opts.MinReadsFactor = *minReadsFactor
	opts.SurfaceSmooth = *surfaceSmooth
	opts.Seed = *seed
	opts.Region = reg

	fa, faClose, err := openFasta(faPath, faiPath)
	if err != nil {
		log.Fatalf("reading %s: %v", faPath, err)
	}
	seqNames := fa.SeqNames()
	if faClose != nil {
		if err := faClose(); err != nil {
			log.Fatalf("closing %s: %v", faPath, err)
		}
	}
	chroms, nameMap := reconcileChromosomes(refs, seqNames)
	if len(chroms) == 0 {
		log.Fatalf("no BAM reference matches any FASTA sequence; check that %s and %s describe the same assembly", bamPath, faPath)
	}

	var filter interval.FilterSet
	if *excludePath != "" {
		if filter.Exclude, err = interval.NewSetFromPath(*excludePath); err != nil {
			log.Fatalf("reading %s: %v", *excludePath, err)
		}
	}
	if *extraPath != "" {
		if filter.Extra, err = interval.NewSetFromPath(*extraPath); err != nil {
			log.Fatalf("reading %s: %v", *extraPath, err)
		}
	}

	lengths := opts.FragmentLengths()
	caps := gcbias.NewReadCountCaps(lengths, opts.ReadsPerBp(),
		1/float64(opts.SampleSize), opts.MinReadsFactor, opts.MaxReadsFactor)

	factory := &pathFactory{
		bamPath:   bamPath,
		indexPath: indexPath,
		faPath:    faPath,
		faiPath:   faiPath,
		nameMap:   nameMap,
	}
	table, _, err := gcbias.Tabulate(opts, chroms, factory, filter, caps)
	if err != nil {
		log.Fatalf("tabulating GC content: %v", err)
	}
	bt, err := gcbias.EstimateRatios(table, opts)
	if err != nil {
		log.Fatalf("estimating bias ratios: %v", err)
	}

	ctx := vcontext.Background()
	if err := gcbias.WriteBiasTable(ctx, *freqPath, bt); err != nil {
		log.Fatalf("writing %s: %v", *freqPath, err)
	}
	if *measuredPath != "" {
		if !opts.Interpolate {
			log.Printf("-measurement-output ignored: without -interpolate the frequency table already holds the raw measurements")
		} else if err := gcbias.WriteMeasuredCounts(ctx, *measuredPath, table); err != nil {
			log.Fatalf("writing %s: %v", *measuredPath, err)
		}
	}
}

// pathFactory opens a fresh FASTA and BAM handle per tabulation worker.
type pathFactory struct {
	bamPath   string
	indexPath string
	faPath    string
	faiPath   string
	nameMap   map[string]string
}

func (f *pathFactory) Sequence() (gcbias.SequenceProvider, error) {
	fa, closer, err := openFasta(f.faPath, f.faiPath)
	if err != nil {
		return nil, err
	}
	return gcbias.NewFastaSequenceProvider(fa, f.nameMap, closer), nil
}

func (f *pathFactory) Alignment() (gcbias.AlignmentProvider, error) {
	return alignment.NewBAMProvider(f.bamPath, alignment.BAMOpts{Index: f.indexPath}), nil
}

// openFasta opens the reference, through its fai index when one is
// available, falling back to loading the whole file.  The returned
// closer, which may be nil, releases the underlying file handle.
func openFasta(path, faiPath string) (fasta.Fasta, func() error, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if faiIn, err := file.Open(ctx, faiPath); err == nil {
		fa, err := fasta.NewIndexed(in.Reader(ctx), faiIn.Reader(ctx))
		if cerr := faiIn.Close(ctx); err == nil {
			err = cerr
		}
		if err != nil {
			_ = in.Close(ctx)
			return nil, nil, err
		}
		return fa, func() error { return in.Close(ctx) }, nil
	}
	log.Printf("no index at %s, reading %s into memory", faiPath, path)
	fa, err := fasta.New(in.Reader(ctx))
	if cerr := in.Close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, nil, err
	}
	return fa, nil, nil
}

// reconcileChromosomes intersects the BAM references with the FASTA
// sequences, tolerating a "chr" prefix present on only one side.  The
// returned map translates BAM reference names to FASTA sequence names
// where they differ.
func reconcileChromosomes(refs []*sam.Reference, seqNames []string) ([]gcbias.Chromosome, map[string]string) {
	have := make(map[string]bool, len(seqNames))
	for _, name := range seqNames {
		have[name] = true
	}
	var chroms []gcbias.Chromosome
	nameMap := make(map[string]string)
	for _, ref := range refs {
		name := ref.Name()
		switch {
		case have[name]:
		case have["chr"+name]:
			nameMap[name] = "chr" + name
		case strings.HasPrefix(name, "chr") && have[name[len("chr"):]]:
			nameMap[name] = name[len("chr"):]
		default:
			log.Printf("reference %s not in FASTA, skipping", name)
			continue
		}
		chroms = append(chroms, gcbias.Chromosome{Name: name, Length: ref.Len()})
	}
	return chroms, nameMap
}

func parseRegion(s string) (*gcbias.Region, error) {
	if s == "" {
		return nil, nil
	}
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return &gcbias.Region{Chrom: s}, nil
	}
	chrom, span := s[:colon], s[colon+1:]
	if chrom == "" {
		return nil, fmt.Errorf("missing contig in region %q", s)
	}
	dash := strings.IndexByte(span, '-')
	if dash < 0 {
		pos, err := strconv.Atoi(span)
		if err != nil || pos < 1 {
			return nil, fmt.Errorf("bad position in region %q", s)
		}
		return &gcbias.Region{Chrom: chrom, Start: pos - 1, End: pos}, nil
	}
	first, err := strconv.Atoi(span[:dash])
	if err != nil || first < 1 {
		return nil, fmt.Errorf("bad start in region %q", s)
	}
	last, err := strconv.Atoi(span[dash+1:])
	if err != nil || last < first {
		return nil, fmt.Errorf("bad end in region %q", s)
	}
	return &gcbias.Region{Chrom: chrom, Start: first - 1, End: last}, nil
}
