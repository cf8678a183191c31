/*
Package jscrypto implements the sealed-message capability.

Scripts obtain a keyed capability from either factory and use it to seal
and open text:

	var c1 = JSCrypto.key("mykey");
	var msg = c1.seal("This is a JS Message");
	var text = c1.open(msg);

	var c2 = getJSCrypto("myTestKey");

For a given key, open(seal(t)) == t. Sealed text is base64. open returns
undefined when the input was not sealed under the same key and scheme.

The default scheme, aes-128-ctr-hmac-sha256, derives its nonce from the
key, so sealing is deterministic. Its layout matches the
AES_128_CTR_HMAC_SHA256 AEAD found in BoringSSL. xchacha20-poly1305 draws a fresh nonce for every seal.
*/
package jscrypto
