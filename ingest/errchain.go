package ingest

import (
	"fmt"
	"io"
	"strings"
)

// causer is the interface github.com/pkg/errors attaches to every
// wrapped error.
type causer interface {
	Cause() error
}

// causes walks err's pkg/errors cause chain, innermost last. Adjacent
// links with the same Error() text (pkg/errors' Wrap adds a stack-only
// link around each message link) are collapsed into one.
func causes(err error) []error {
	var chain []error
	for err != nil {
		if n := len(chain); n > 0 && chain[n-1].Error() == err.Error() {
			chain[n-1] = err
		} else {
			chain = append(chain, err)
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		next := c.Cause()
		if next == nil || next == err {
			break
		}
		err = next
	}
	return chain
}

// ownMessages returns, for each link in chain, the text that link added
// on top of the next one's Error() string (pkg/errors' Wrap(err, msg)
// renders as "msg: " + err.Error(), so the added text is found by
// trimming that suffix); the innermost link's own message is its full
// Error() string.
func ownMessages(chain []error) []string {
	msgs := make([]string, len(chain))
	for i, e := range chain {
		if i == len(chain)-1 {
			msgs[i] = e.Error()
			continue
		}
		msgs[i] = strings.TrimSuffix(e.Error(), ": "+chain[i+1].Error())
	}
	return msgs
}

func causeChainFormat(err error) string {
	return strings.Join(ownMessages(causes(err)), ": caused by: ")
}

// PrintCauseChain writes err's top-level message followed by one
// "caused by: ..." line per wrapped cause, matching
// original_source/src/main.rs's `for e in e.iter().skip(1) { eprintln!("caused by: {}", e) }`.
func PrintCauseChain(w io.Writer, err error) {
	chain := causes(err)
	if len(chain) == 0 {
		return
	}
	msgs := ownMessages(chain)
	fmt.Fprintf(w, "error: %s\n", msgs[0])
	for _, msg := range msgs[1:] {
		fmt.Fprintf(w, "caused by: %s\n", msg)
	}
}
