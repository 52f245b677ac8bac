package runner

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

var (
	fileFmt    = color.New(color.FgCyan, color.Bold).SprintFunc()
	okFmt      = color.New(color.FgGreen).SprintFunc()
	failedFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	headingFmt = color.New(color.Bold).SprintFunc()
)

func (r *Runner) renderFileBanner(name string) {
	fmt.Fprintf(r.out, "\n%s\n", fileFmt(name))
}

func (r *Runner) renderStatus(res Result) {
	verdict := okFmt("ok")
	if res.Failure != nil {
		verdict = failedFmt("FAILED")
	}

	fmt.Fprintf(r.out, "test %s ... %s\n", res.Test.Header, verdict)
}

// renderVerdict prints the failure details and the final tally, mirroring
// the per-test status lines the run already produced.
func (r *Runner) renderVerdict(summary *Summary) {
	if len(summary.Failures) > 0 {
		fmt.Fprintf(r.out, "\n%s\n", headingFmt("failures:"))

		for _, res := range summary.Failures {
			fmt.Fprintf(r.out, "\n---- %s: test %s ----\n", res.File, res.Test.Header)
			res.Failure.Render(r.out, res.Test)
		}
	}

	verdict := okFmt("ok")
	if !summary.Ok() {
		verdict = failedFmt("FAILED")
	}

	fmt.Fprintf(r.out, "\ntest result: %s. %d passed; %d failed; finished in %s\n",
		verdict, summary.PassedTests, summary.FailedTests, summary.Duration.Round(time.Millisecond))
}
