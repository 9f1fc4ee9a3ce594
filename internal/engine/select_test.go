package engine

import "testing"

func TestBucketQuotasSumExactly(t *testing.T) {
	for difficulty := 0; difficulty <= 100; difficulty += 5 {
		for _, count := range []int{1, 3, 7, 10, 25, 100} {
			quotas := bucketQuotas(difficulty, count)
			sum := 0
			for b, q := range quotas {
				if q < 0 {
					t.Fatalf("difficulty=%d count=%d: negative quota in bucket %d", difficulty, count, b+1)
				}
				sum += q
			}
			if sum != count {
				t.Fatalf("difficulty=%d count=%d: quotas %v sum to %d", difficulty, count, quotas, sum)
			}
		}
	}
}

func TestBucketQuotasMidpointSplit(t *testing.T) {
	quotas := bucketQuotas(50, 10)
	want := [4]int{1, 4, 4, 1}
	if quotas != want {
		t.Fatalf("difficulty=50 count=10: got %v, want %v", quotas, want)
	}
}

func TestBucketQuotasExtremes(t *testing.T) {
	low := bucketQuotas(0, 10)
	if low[0] < low[3] {
		t.Fatalf("difficulty 0 should favor bucket 1: %v", low)
	}
	high := bucketQuotas(100, 10)
	if high[3] < high[0] {
		t.Fatalf("difficulty 100 should favor bucket 4: %v", high)
	}
}

func TestBucketQuotasTieBreakDeterministic(t *testing.T) {
	first := bucketQuotas(50, 7)
	for i := 0; i < 50; i++ {
		if got := bucketQuotas(50, 7); got != first {
			t.Fatalf("quota allocation not deterministic: %v vs %v", got, first)
		}
	}
}

func TestBucketQuotasZeroCount(t *testing.T) {
	if got := bucketQuotas(50, 0); got != ([4]int{}) {
		t.Fatalf("expected empty quotas, got %v", got)
	}
}
