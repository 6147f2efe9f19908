package resolve

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkResolveChain(b *testing.B) {
	p := newMapProvider()
	const depth = 20
	for i := 0; i < depth; i++ {
		name := fmt.Sprintf("pkg%02d", i)
		for _, v := range []string{"1.0.0", "1.1.0", "1.2.0", "2.0.0", "2.1.0"} {
			if i < depth-1 {
				p.add(name, v, dep(fmt.Sprintf("pkg%02d", i+1), ">= 1.0.0"))
			} else {
				p.add(name, v)
			}
		}
	}
	roots := []Dependency{dep("pkg00", ">= 1.0.0")}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Resolve(context.Background(), p, roots); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolveBacktracking(b *testing.B) {
	p := newMapProvider()
	// Every newer release of mid needs an end that does not exist, so
	// the solver walks back through the candidate list.
	p.add("mid", "1.0.0")
	for i := 1; i <= 10; i++ {
		p.add("mid", fmt.Sprintf("1.%d.0", i), dep("end", ">= 9.0.0"))
	}
	p.add("end", "1.0.0")
	roots := []Dependency{dep("mid", "~> 1.0")}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		got, err := Resolve(context.Background(), p, roots)
		if err != nil {
			b.Fatal(err)
		}
		if got["mid"].String() != "1.0.0" {
			b.Fatalf("mid = %s", got["mid"])
		}
	}
}
