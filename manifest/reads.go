package manifest

import (
	"strconv"

	"github.com/pkg/errors"
)

// parseReadDescriptions collects every <RunInfoRead> or <Read> element
// found anywhere in doc, in document order, dropping any whose NumCycles
// is 0.
func parseReadDescriptions(doc *node) ([]ReadDescription, error) {
	nodes := elementsNamed(doc, "RunInfoRead", "Read")
	reads := make([]ReadDescription, 0, len(nodes))
	for _, e := range nodes {
		cyclesStr, ok := e.attr("NumCycles")
		if !ok {
			return nil, errors.Errorf("manifest: <%s> missing NumCycles attribute", e.Name)
		}
		numCycles, err := strconv.Atoi(cyclesStr)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest: <%s NumCycles=%q>", e.Name, cyclesStr)
		}
		if numCycles == 0 {
			continue
		}
		numberStr, ok := e.attr("Number")
		if !ok {
			return nil, errors.Errorf("manifest: <%s> missing Number attribute", e.Name)
		}
		number, err := strconv.Atoi(numberStr)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest: <%s Number=%q>", e.Name, numberStr)
		}
		isIndexed, _ := e.attr("IsIndexedRead")
		reads = append(reads, ReadDescription{
			Number:    number,
			NumCycles: numCycles,
			IsIndex:   isIndexed == "Y",
		})
	}
	return reads, nil
}
