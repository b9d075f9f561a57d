package npy

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/kailas-cloud/overlaps/internal/pickle"
)

// Module paths of numpy's multiarray helpers before and after numpy 2.
var multiarrayModules = map[string]bool{
	"numpy.core.multiarray":  true,
	"numpy._core.multiarray": true,
}

// readObjects unpickles an object array body and returns its items in C order.
func readObjects(r io.Reader) ([]any, error) {
	v, err := pickle.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("npy: object array: %w", err)
	}
	obj, ok := v.(*pickle.Object)
	if !ok || !isMultiarray(obj.Callable, "_reconstruct") {
		return nil, fmt.Errorf("%w: object payload is %T, want ndarray", ErrFormat, v)
	}
	// ndarray state: (version, shape, dtype, is_fortran, data)
	state, ok := obj.State.(pickle.Tuple)
	if !ok || len(state) != 5 {
		return nil, fmt.Errorf("%w: ndarray state %T", ErrFormat, obj.State)
	}
	list, ok := state[4].(*pickle.List)
	if !ok {
		return nil, fmt.Errorf("%w: ndarray data %T, want list", ErrUnsupportedDType, state[4])
	}
	return list.Items, nil
}

func isMultiarray(callable any, name string) bool {
	g, ok := callable.(pickle.Global)
	return ok && multiarrayModules[g.Module] && g.Name == name
}

func objectFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, nil
	case *pickle.Object:
		dt, payload, err := scalar(x)
		if err != nil {
			return 0, err
		}
		if !dt.Numeric() || len(payload) != dt.ItemSize() {
			return 0, fmt.Errorf("%w: scalar of %q is not numeric", ErrUnsupportedDType, dt.Kind)
		}
		return dt.decodeFloat(payload)
	}
	return 0, fmt.Errorf("%w: object element %T is not numeric", ErrUnsupportedDType, v)
}

func objectText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case *pickle.Object:
		dt, payload, err := scalar(x)
		if err != nil {
			return "", err
		}
		if !dt.Text() || len(payload) != dt.ItemSize() {
			return "", fmt.Errorf("%w: scalar of %q is not text", ErrUnsupportedDType, dt.Kind)
		}
		return dt.decodeString(payload)
	}
	return "", fmt.Errorf("%w: object element %T is not text", ErrUnsupportedDType, v)
}

// scalar unpacks a pickled numpy scalar: multiarray.scalar(dtype, payload).
func scalar(obj *pickle.Object) (DType, []byte, error) {
	if !isMultiarray(obj.Callable, "scalar") || len(obj.Args) < 2 {
		return DType{}, nil, fmt.Errorf("%w: object element calls %v", ErrUnsupportedDType, obj.Callable)
	}
	dtObj, ok := obj.Args[0].(*pickle.Object)
	if !ok || len(dtObj.Args) == 0 {
		return DType{}, nil, fmt.Errorf("%w: scalar dtype %T", ErrFormat, obj.Args[0])
	}
	descr, ok := dtObj.Args[0].(string)
	if !ok {
		return DType{}, nil, fmt.Errorf("%w: scalar dtype args %v", ErrFormat, dtObj.Args)
	}
	// dtype state: (version, byteorder, ...)
	if st, ok := dtObj.State.(pickle.Tuple); ok && len(st) > 1 {
		if order, ok := st[1].(string); ok && descr != "" && !strings.ContainsAny(descr[:1], "<>|=") {
			descr = order + descr
		}
	}
	dt, err := ParseDType(descr)
	if err != nil {
		return DType{}, nil, err
	}

	var payload []byte
	switch p := obj.Args[1].(type) {
	case []byte:
		payload = p
	case string:
		// Protocol 0/1 streams carry the payload as a latin-1 str.
		for _, r := range p {
			payload = append(payload, byte(r))
		}
	default:
		return DType{}, nil, fmt.Errorf("%w: scalar payload %T", ErrFormat, obj.Args[1])
	}
	return dt, payload, nil
}
